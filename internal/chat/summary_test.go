package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/triage"
	"github.com/teemow/gwsa/internal/triage/triagetest"
)

func TestSpaceTypeFilter(t *testing.T) {
	assert.Equal(t, `spaceType = "GROUP_CHAT"`, chat.SpaceTypeFilter(triage.SpaceTypeGroupChat))
	assert.Empty(t, chat.SpaceTypeFilter(""))
}

func TestSummarizeSpaces(t *testing.T) {
	fake := triagetest.NewChat()
	fake.Members["spaces/DM"] = []triage.Member{
		{UserID: "users/1", DisplayName: "Alice"},
		{UserID: "users/2", DisplayName: "Bob"},
	}
	fake.Members["spaces/ROOM"] = []triage.Member{{UserID: "users/1", DisplayName: "Alice"}}

	five := 5
	active := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	spaces := []triage.Space{
		{Name: "spaces/DM", Type: triage.SpaceTypeDirectMessage},
		{Name: "spaces/ROOM", DisplayName: "Eng", Type: triage.SpaceTypeSpace, MemberCount: &five, LastActiveTime: active},
		{Name: "spaces/EMPTY", Type: triage.SpaceTypeGroupChat},
	}

	t.Run("without names", func(t *testing.T) {
		got := chat.SummarizeSpaces(context.Background(), fake, spaces, false)
		assert.Equal(t, []chat.SpaceSummary{
			{Name: "spaces/DM", DisplayName: "(direct message)", Type: triage.SpaceTypeDirectMessage, Members: 2},
			{Name: "spaces/ROOM", DisplayName: "Eng", Type: triage.SpaceTypeSpace, Members: 5, LastActiveTime: active},
			{Name: "spaces/EMPTY", DisplayName: "(unnamed)", Type: triage.SpaceTypeGroupChat},
		}, got)
	})

	t.Run("with names", func(t *testing.T) {
		got := chat.SummarizeSpaces(context.Background(), fake, spaces, true)
		assert.Equal(t, "Alice, Bob", got[0].DisplayName)
		assert.Equal(t, []string{"Alice"}, got[1].Participants)
		assert.Equal(t, "Eng", got[1].DisplayName)
	})
}

func TestSummarizeMessages(t *testing.T) {
	names := &triagetest.Names{Names: map[string]string{"users/2": "Bob Builder"}}
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []triage.Message{
		{Name: "m1", SenderID: "users/1", SenderDisplayName: "Alice", CreateTime: created, Text: "hi", ThreadName: "t1"},
		{Name: "m2", SenderID: "users/2", CreateTime: created, Text: "hello"},
		{Name: "m3", SenderID: "users/3", CreateTime: created},
	}

	got := chat.SummarizeMessages(context.Background(), names, messages)
	assert.Equal(t, []chat.MessageSummary{
		{Name: "m1", Sender: "Alice", SenderID: "users/1", CreateTime: created, Text: "hi", Thread: "t1"},
		{Name: "m2", Sender: "Bob Builder", SenderID: "users/2", CreateTime: created, Text: "hello"},
		{Name: "m3", Sender: "Unknown", SenderID: "users/3", CreateTime: created},
	}, got)
}

