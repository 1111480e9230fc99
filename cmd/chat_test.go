package cmd

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/triage"
	"github.com/teemow/gwsa/internal/triage/triagetest"
)

func intPtr(n int) *int { return &n }

func mentionFixture() *triagetest.Chat {
	now := time.Now()
	c := triagetest.NewChat()
	c.AddSpace(triage.Space{
		Name:           "spaces/dm",
		Type:           triage.SpaceTypeDirectMessage,
		MemberCount:    intPtr(2),
		LastActiveTime: now.Add(-time.Hour),
	}, triage.Message{
		Name:       "spaces/dm/messages/1",
		SenderID:   "users/222",
		CreateTime: now.Add(-time.Hour),
		Text:       "can you take a look\nat the rollout?",
		ThreadName: "spaces/dm/threads/1",
	})
	c.AddSpace(triage.Space{
		Name:           "spaces/eng",
		DisplayName:    "Engineering",
		Type:           triage.SpaceTypeSpace,
		MemberCount:    intPtr(40),
		LastActiveTime: now.Add(-2 * time.Hour),
	}, triage.Message{
		Name:       "spaces/eng/messages/1",
		SenderID:   "users/333",
		CreateTime: now.Add(-2 * time.Hour),
		Text:       "morning all",
	})
	return c
}

func TestMentions_JSON(t *testing.T) {
	setupEnv(t)
	useClients(t, fakeClients(mentionFixture(), map[string]string{"users/222": "Bob Builder"}))

	out, err := runCmd(t, "chat", "mentions", "--profile", "work", "--format", "json")
	require.NoError(t, err)

	var result triage.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Mentions, 1)
	assert.Equal(t, "Bob Builder", result.Mentions[0].Sender)
	assert.Equal(t, "spaces/dm", result.Mentions[0].SpaceID)
	assert.Equal(t, triage.ExitCompleted, result.Source.ExitReason)
	assert.Equal(t, 2, result.TotalCount)
}

func TestMentions_Text(t *testing.T) {
	setupEnv(t)
	useClients(t, fakeClients(mentionFixture(), map[string]string{"users/222": "Bob Builder"}))

	out, err := runCmd(t, "chat", "mentions", "-p", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "1 message needs your attention")
	assert.Contains(t, out, "Bob Builder: can you take a look at the rollout?")
	assert.Contains(t, out, "spaces/dm/threads/1")
}

func TestMentions_FlagsOverrideDefaults(t *testing.T) {
	setupEnv(t)
	useClients(t, fakeClients(mentionFixture(), nil))

	out, err := runCmd(t, "chat", "mentions", "-p", "work", "-o", "json",
		"--limit", "1", "--tier", "2:14", "--tier", ":1", "--discovery-limit", "5")
	require.NoError(t, err)

	var result triage.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 2, result.ScannedCount)
	assert.Equal(t, 1, result.Source.TotalSpacesScanned)
	assert.Equal(t, triage.ExitSpaceLimitReached, result.Source.ExitReason)
	require.Len(t, result.Source.Spaces, 1)
	assert.Equal(t, 14, result.Source.Spaces[0].LookbackDays)
}

func TestMentions_Errors(t *testing.T) {
	setupEnv(t)
	useClients(t, fakeClients(triagetest.NewChat(), nil))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no profile", args: []string{"chat", "mentions"}, want: "pass --profile"},
		{name: "bad format", args: []string{"chat", "mentions", "-p", "work", "--format", "yaml"}, want: "unsupported format"},
		{name: "bad tier", args: []string{"chat", "mentions", "-p", "work", "--tier", "x:y"}, want: "tier"},
		{name: "negative limit", args: []string{"chat", "mentions", "-p", "work", "--limit", "-1"}, want: "invalid scan options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSpacesList(t *testing.T) {
	setupEnv(t)
	fixture := mentionFixture()
	fixture.Members["spaces/dm"] = []triage.Member{
		{Name: "spaces/dm/members/1", UserID: "users/111", DisplayName: "Alice Example"},
		{Name: "spaces/dm/members/2", UserID: "users/222", DisplayName: "Bob Builder"},
	}
	useClients(t, fakeClients(fixture, nil))

	out, err := runCmd(t, "chat", "spaces", "list", "-p", "work", "--names")
	require.NoError(t, err)
	assert.Contains(t, out, "LAST ACTIVE")
	assert.Contains(t, out, "Alice Example, Bob Builder")
	assert.Contains(t, out, "Engineering")
	assert.Contains(t, out, "eng")

	out, err = runCmd(t, "chat", "spaces", "list", "-p", "work", "--type", "SPACE", "-o", "json")
	require.NoError(t, err)
	var spaces []chat.SpaceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &spaces))
	assert.Len(t, spaces, 2)
	last := fixture.SpaceRequests[len(fixture.SpaceRequests)-1]
	assert.Equal(t, `spaceType = "SPACE"`, last.Filter)
	assert.Equal(t, 10, last.PageSize)

	_, err = runCmd(t, "chat", "spaces", "list", "-p", "work", "--type", "ROOM")
	assert.ErrorContains(t, err, "unknown space type")
}

func TestMessagesList(t *testing.T) {
	setupEnv(t)
	fixture := mentionFixture()
	useClients(t, fakeClients(fixture, map[string]string{"users/222": "Bob Builder"}))

	out, err := runCmd(t, "chat", "messages", "list", "dm", "-p", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob Builder: can you take a look at the rollout?")

	last := fixture.MessageRequests[len(fixture.MessageRequests)-1]
	assert.Equal(t, "spaces/dm", last.Space)
	assert.Equal(t, 25, last.PageSize)
	assert.Equal(t, triage.OrderNewestFirst, last.OrderBy)

	out, err = runCmd(t, "chat", "messages", "list", "spaces/eng", "-p", "work", "--limit", "5", "-o", "json")
	require.NoError(t, err)
	var messages []chat.MessageSummary
	require.NoError(t, json.Unmarshal([]byte(out), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "Unknown", messages[0].Sender)
}

func TestNormalizeSpaceName(t *testing.T) {
	assert.Equal(t, "spaces/AAA", normalizeSpaceName("AAA"))
	assert.Equal(t, "spaces/AAA", normalizeSpaceName("spaces/AAA"))
}
