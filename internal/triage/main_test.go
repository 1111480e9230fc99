package triage_test

import (
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/teemow/gwsa/internal/triage"
	"github.com/teemow/gwsa/internal/triage/triagetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	day  = 24 * time.Hour
	myID = "users/111"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

var me = &triage.Identity{ResourceName: "people/111", DisplayName: "Alice Example"}

func ago(d time.Duration) time.Time {
	return now.Add(-d)
}

func intPtr(n int) *int {
	return &n
}

func newEngine(chat triage.ChatClient, identity triage.IdentityResolver, names triage.NameResolver, opts ...triage.Option) *triage.Engine {
	opts = append([]triage.Option{
		triage.WithClock(func() time.Time { return now }),
		triage.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	return triage.NewEngine(chat, identity, names, opts...)
}

func knownIdentity() *triagetest.Identity {
	return &triagetest.Identity{Me: me}
}

func dm(name string, lastActive time.Time) triage.Space {
	return triage.Space{Name: name, DisplayName: "", Type: triage.SpaceTypeDirectMessage, LastActiveTime: lastActive}
}

func room(name, display string, members int, lastActive time.Time) triage.Space {
	return triage.Space{
		Name:           name,
		DisplayName:    display,
		Type:           triage.SpaceTypeSpace,
		MemberCount:    intPtr(members),
		LastActiveTime: lastActive,
	}
}

func msg(name, sender string, created time.Time, text string) triage.Message {
	return triage.Message{
		Name:       name,
		SenderID:   sender,
		CreateTime: created,
		Text:       text,
		ThreadName: name + "/thread",
	}
}
