package triage_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gwsa/internal/triage"
	"github.com/teemow/gwsa/internal/triage/triagetest"
)

func TestScan_ScenarioC_ImplicitSpaceAnsweredByMe(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/2", myID, ago(time.Hour), "sure, done"),
		msg("spaces/dm/messages/1", "users/222", ago(2*time.Hour), "can you check?"),
	)

	result, err := newEngine(chat, knownIdentity(), &triagetest.Names{}).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	require.Len(t, result.Source.Spaces, 1)
	assert.Equal(t, 1, result.Source.Spaces[0].MessagesScanned)
	assert.Equal(t, 1, result.Source.Spaces[0].MessagesInRange)
	assert.Equal(t, map[string][]int{"spaces/dm": {1}}, chat.FetchedSizes())
	assert.Empty(t, chat.ReactionRequests)
}

func TestScan_ScenarioD_ExplicitTextMention(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/eng", "Engineering", 50, ago(time.Hour)),
		msg("spaces/eng/messages/3", "users/333", ago(time.Hour), "unrelated chatter"),
		msg("spaces/eng/messages/2", "users/222", ago(2*time.Hour), "hey @Alice can you review the rollout plan?"),
		msg("spaces/eng/messages/1", "users/333", ago(3*time.Hour), "morning"),
	)
	names := &triagetest.Names{Names: map[string]string{"users/222": "Bob Builder"}}

	result, err := newEngine(chat, knownIdentity(), names).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	want := []triage.ActionableItem{{
		Type:       triage.MentionExplicit,
		Space:      "Engineering",
		SpaceID:    "spaces/eng",
		Members:    50,
		ThreadName: "spaces/eng/messages/2/thread",
		Time:       ago(2 * time.Hour),
		Sender:     "Bob Builder",
		Text:       "hey @Alice can you review the rollout plan?",
		Reason:     "Explicit mention",
	}}
	if diff := cmp.Diff(want, result.Mentions); diff != "" {
		t.Errorf("mentions mismatch (-want +got):\n%s", diff)
	}

	wantStats := triage.SpaceStats{
		ID:                 "spaces/eng",
		Name:               "Engineering",
		Type:               triage.SpaceTypeSpace,
		Members:            50,
		LastActive:         ago(time.Hour),
		LookbackDays:       2,
		MessagesScanned:    3,
		MessagesInRange:    2,
		MentionsFound:      1,
		UnansweredMentions: 1,
	}
	require.Len(t, result.Source.Spaces, 1)
	if diff := cmp.Diff(wantStats, result.Source.Spaces[0]); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string][]int{"spaces/eng": {20}}, chat.FetchedSizes())
	assert.Equal(t, []string{"spaces/eng/messages/2"}, chat.ReactionRequests)
	assert.Equal(t, map[string]int{
		triage.CallGetMe:             1,
		triage.CallListSpaces:        1,
		triage.CallListSpaceMessages: 1,
		triage.CallListReactions:     1,
		triage.CallResolvePersonName: 1,
	}, result.APIStats)
}

func TestScan_ImplicitUnreplied(t *testing.T) {
	chat := triagetest.NewChat()
	latest := msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "lunch?")
	latest.SenderDisplayName = "Bob"
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)), latest)

	result, err := newEngine(chat, knownIdentity(), &triagetest.Names{}).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Mentions, 1)
	item := result.Mentions[0]
	assert.Equal(t, triage.MentionImplicit, item.Type)
	assert.Equal(t, "Unreplied message", item.Reason)
	assert.Equal(t, "Unknown Space", item.Space)
	assert.Equal(t, "Bob", item.Sender)
	assert.Equal(t, 2, item.Members)
	assert.Equal(t, "Unknown", result.Source.Spaces[0].Name)
}

func TestScan_ReactionDismissesItem(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "shipped it"))
	chat.Reactions["spaces/dm/messages/1"] = []triage.Reaction{
		{UserID: "users/222", Emoji: "🎉"},
		{UserID: myID, Emoji: "👍"},
	}

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	assert.Equal(t, 1, result.Source.Spaces[0].MentionsFound)
	assert.Equal(t, 0, result.Source.Spaces[0].UnansweredMentions)
}

func TestScan_ReactionCheckFailureKeepsItem(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "ping"))
	chat.ReactionsErr["spaces/dm/messages/1"] = errors.New("permission denied")

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Mentions, 1)
	assert.Equal(t, "Unknown", result.Mentions[0].Sender)
	assert.Empty(t, result.Source.Spaces[0].Error)
}

func TestScan_SelfMessageHaltsWalk(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
		msg("spaces/eng/messages/4", "users/222", ago(time.Hour), "nothing for alice here"),
		msg("spaces/eng/messages/3", myID, ago(2*time.Hour), "replying"),
		msg("spaces/eng/messages/2", "users/222", ago(3*time.Hour), "@Alice please look"),
	)

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	assert.Equal(t, 2, result.Source.Spaces[0].MessagesInRange)
	assert.Equal(t, 0, result.Source.Spaces[0].MentionsFound)
	assert.Empty(t, chat.ReactionRequests)
}

func TestScan_AllMessagesMode(t *testing.T) {
	opts := triage.DefaultOptions()
	opts.UnansweredOnly = false

	t.Run("older mention after my reply is not actionable", func(t *testing.T) {
		chat := triagetest.NewChat()
		chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
			msg("spaces/eng/messages/3", myID, ago(time.Hour), "replying"),
			msg("spaces/eng/messages/2", "users/222", ago(2*time.Hour), "@Alice please look"),
		)

		result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), opts)
		require.NoError(t, err)

		assert.Empty(t, result.Mentions)
		assert.Equal(t, 2, result.Source.Spaces[0].MessagesInRange)
	})

	t.Run("newer mention is reported without reaction check", func(t *testing.T) {
		chat := triagetest.NewChat()
		chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
			msg("spaces/eng/messages/3", "users/222", ago(time.Hour), "@Alice ping"),
			msg("spaces/eng/messages/2", myID, ago(2*time.Hour), "earlier reply"),
		)
		chat.Reactions["spaces/eng/messages/3"] = []triage.Reaction{{UserID: myID}}

		result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), opts)
		require.NoError(t, err)

		require.Len(t, result.Mentions, 1)
		assert.Equal(t, "spaces/eng/messages/3/thread", result.Mentions[0].ThreadName)
		assert.Empty(t, chat.ReactionRequests)
	})
}

func TestScan_AnnotationMention(t *testing.T) {
	chat := triagetest.NewChat()
	m := msg("spaces/eng/messages/1", "users/222", ago(time.Hour), "<users/111> can you help?")
	m.Annotations = []triage.Annotation{{Type: triage.AnnotationUserMention, UserID: myID}}
	m.SenderEmail = "bob@example.com"
	chat.AddSpace(room("spaces/eng", "Engineering", 12, ago(time.Hour)), m)

	result, err := newEngine(chat, knownIdentity(), &triagetest.Names{}).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Mentions, 1)
	assert.Equal(t, triage.MentionExplicit, result.Mentions[0].Type)
	assert.Equal(t, "bob@example.com", result.Mentions[0].Sender)
}

func TestScan_OldMessagesAreSkipped(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
		msg("spaces/eng/messages/2", "users/222", ago(time.Hour), "status update"),
		msg("spaces/eng/messages/1", "users/222", ago(3*day), "@Alice old question"),
	)

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	assert.Equal(t, 2, result.Source.Spaces[0].MessagesScanned)
	assert.Equal(t, 1, result.Source.Spaces[0].MessagesInRange)
}

func TestScan_AtMostOneItemPerSpace(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
		msg("spaces/eng/messages/3", "users/222", ago(time.Hour), "@Alice newest"),
		msg("spaces/eng/messages/2", "users/333", ago(2*time.Hour), "@Alice older"),
	)

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Mentions, 1)
	assert.Equal(t, "@Alice newest", result.Mentions[0].Text)
}

func TestScan_IdentityFailureSkipsImplicitSpaces(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "hi"))
	chat.AddSpace(room("spaces/eng", "Engineering", 30, ago(time.Hour)),
		msg("spaces/eng/messages/1", "users/222", ago(time.Hour), "@Alice hi"))

	identity := &triagetest.Identity{Err: errors.New("people api unavailable")}
	result, err := newEngine(chat, identity, nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	require.Len(t, result.Source.Spaces, 2)
	assert.Equal(t, triage.SkipIdentityUnknown, result.Source.Spaces[0].Skipped)
	assert.Empty(t, result.Source.Spaces[1].Skipped)
	assert.Equal(t, map[string][]int{"spaces/eng": {20}}, chat.FetchedSizes())
}

func TestScan_NoIdentityResolver(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "hi"))

	result, err := newEngine(chat, nil, nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Mentions)
	assert.Equal(t, triage.SkipIdentityUnknown, result.Source.Spaces[0].Skipped)
	assert.NotContains(t, result.APIStats, triage.CallGetMe)
}

func TestScan_SpaceErrorIsIsolated(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/broken", ago(time.Hour)))
	chat.AddSpace(room("spaces/eng", "Engineering", 3, ago(time.Hour)),
		msg("spaces/eng/messages/1", "users/222", ago(time.Hour), "anyone?"))
	chat.MessagesErr["spaces/broken"] = errors.New("backend error")

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Source.Spaces, 2)
	assert.Contains(t, result.Source.Spaces[0].Error, "backend error")
	require.Len(t, result.Mentions, 1)
	assert.Equal(t, "spaces/eng", result.Mentions[0].SpaceID)
	assert.Equal(t, triage.ExitCompleted, result.Source.ExitReason)
}

func TestScan_ExitReasons(t *testing.T) {
	build := func() *triagetest.Chat {
		chat := triagetest.NewChat()
		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("spaces/room-%d", i)
			var messages []triage.Message
			for j := 0; j < 20; j++ {
				messages = append(messages, msg(fmt.Sprintf("%s/messages/%d", name, j), "users/222", ago(time.Duration(j+1)*time.Minute), "chatter"))
			}
			chat.AddSpace(room(name, name, 20+i, ago(time.Minute)), messages...)
		}
		return chat
	}

	tests := []struct {
		name          string
		spaceLimit    int
		messageLimit  int
		wantReason    triage.ExitReason
		wantSpaces    int
		wantMessages  int
		wantLastFetch int
	}{
		{"completed", 3, 100, triage.ExitCompleted, 3, 60, 20},
		{"space limit", 2, 100, triage.ExitSpaceLimitReached, 2, 40, 20},
		{"message limit", 10, 30, triage.ExitMessageLimitReached, 2, 30, 10},
		{"zero space limit", 0, 100, triage.ExitSpaceLimitReached, 0, 0, 0},
		{"zero message limit", 10, 0, triage.ExitMessageLimitReached, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := build()
			opts := triage.DefaultOptions()
			opts.SpaceLimit = tt.spaceLimit
			opts.MessageScanLimit = tt.messageLimit

			result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), opts)
			require.NoError(t, err)

			assert.Equal(t, tt.wantReason, result.Source.ExitReason)
			assert.Equal(t, tt.wantSpaces, result.Source.TotalSpacesScanned)
			assert.Equal(t, tt.wantMessages, result.Source.TotalMessagesScanned)
			assert.Equal(t, 3, result.ScannedCount)
			assert.Equal(t, 3, result.TotalCount)
			if tt.wantLastFetch > 0 {
				require.NotEmpty(t, chat.MessageRequests)
				assert.Equal(t, tt.wantLastFetch, chat.MessageRequests[len(chat.MessageRequests)-1].PageSize)
			} else {
				assert.Empty(t, chat.MessageRequests)
			}
		})
	}
}

func TestScan_Cancelled(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "hi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEngine(chat, knownIdentity(), nil).Scan(ctx, triage.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, triage.ExitCancelled, result.Source.ExitReason)
	assert.Empty(t, result.Source.Spaces)
	assert.Empty(t, chat.MessageRequests)
}

func TestScan_CancelledDuringDiscovery(t *testing.T) {
	chat := triagetest.NewChat()
	chat.RespectContext = true
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "hi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEngine(chat, knownIdentity(), nil).Scan(ctx, triage.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, triage.ExitCancelled, result.Source.ExitReason)
	assert.Equal(t, 0, result.TotalCount)
	assert.Len(t, chat.SpaceRequests, 1)
	assert.Empty(t, chat.MessageRequests)
}

func TestScan_CancelledDuringLastSpace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chat := triagetest.NewChat()
	chat.RespectContext = true
	chat.BeforeListMessages = func(space string) {
		if space == "spaces/eng" {
			cancel()
		}
	}
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", myID, ago(time.Hour), "done"))
	chat.AddSpace(room("spaces/eng", "Engineering", 50, ago(time.Hour)),
		msg("spaces/eng/messages/1", "users/222", ago(time.Hour), "@Alice ping"))

	result, err := newEngine(chat, knownIdentity(), nil).Scan(ctx, triage.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, triage.ExitCancelled, result.Source.ExitReason)
	require.Len(t, result.Source.Spaces, 2)
	assert.Empty(t, result.Source.Spaces[0].Error)
	assert.Equal(t, "spaces/eng", result.Source.Spaces[1].ID)
	assert.Contains(t, result.Source.Spaces[1].Error, context.Canceled.Error())
	assert.Empty(t, result.Mentions)
}

func TestScan_UnnamedSpaceStats(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/unnamed", "", 10, ago(time.Hour)))

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Source.Spaces, 1)
	assert.Equal(t, "spaces/unnamed", result.Source.Spaces[0].ID)
	assert.Equal(t, "Unknown", result.Source.Spaces[0].Name)
}

func TestScan_Discovery(t *testing.T) {
	build := func(n int) *triagetest.Chat {
		chat := triagetest.NewChat()
		for i := 0; i < n; i++ {
			chat.AddSpace(room(fmt.Sprintf("spaces/%d", i), "", 100, ago(30*day)))
		}
		return chat
	}

	t.Run("stops at discovery limit", func(t *testing.T) {
		chat := build(250)
		opts := triage.DefaultOptions()
		opts.DiscoveryLimit = 150

		result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), opts)
		require.NoError(t, err)

		assert.Equal(t, 150, result.TotalCount)
		assert.Equal(t, 0, result.ScannedCount)
		require.Len(t, chat.SpaceRequests, 2)
		assert.Equal(t, triage.SpacesPageSize, chat.SpaceRequests[0].PageSize)
		assert.Equal(t, triage.SpaceFields, chat.SpaceRequests[0].Fields)
		assert.Equal(t, "100", chat.SpaceRequests[1].PageToken)
	})

	t.Run("keeps spaces collected before a failure", func(t *testing.T) {
		chat := build(250)
		chat.SpacesErr = errors.New("quota exceeded")
		chat.FailSpacesAfter = 1

		result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, 100, result.TotalCount)
		assert.Equal(t, 2, result.APIStats[triage.CallListSpaces])
	})
}

func TestScan_CandidateOrder(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(room("spaces/big", "Big", 40, ago(time.Hour)))
	chat.AddSpace(triage.Space{Name: "spaces/group-chat", Type: triage.SpaceTypeGroupChat, MemberCount: intPtr(5), LastActiveTime: ago(time.Hour)})
	chat.AddSpace(room("spaces/small", "Small", 4, ago(time.Hour)))
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)))

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	var got []string
	for _, s := range result.Source.Spaces {
		got = append(got, s.ID)
	}
	assert.Equal(t, []string{"spaces/dm", "spaces/group-chat", "spaces/small", "spaces/big"}, got)
}

func TestScan_InvalidOptions(t *testing.T) {
	opts := triage.DefaultOptions()
	opts.DiscoveryLimit = 0

	_, err := newEngine(triagetest.NewChat(), nil, nil).Scan(context.Background(), opts)
	assert.ErrorIs(t, err, triage.ErrInvalidOptions)
}

func TestScan_NilTiersUseDefaults(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(10*day)))

	opts := triage.DefaultOptions()
	opts.Tiers = nil

	result, err := newEngine(chat, knownIdentity(), nil).Scan(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.Source.Spaces, 1)
	assert.Equal(t, 14, result.Source.Spaces[0].LookbackDays)
}

type recordedScan struct {
	exitReason string
	spaces     int
	mentions   int
}

type fakeRecorder struct {
	scans []recordedScan
}

func (r *fakeRecorder) RecordTriageScan(_ context.Context, exitReason string, spaces, mentions int, _ time.Duration) {
	r.scans = append(r.scans, recordedScan{exitReason, spaces, mentions})
}

func TestScan_Recorder(t *testing.T) {
	chat := triagetest.NewChat()
	chat.AddSpace(dm("spaces/dm", ago(time.Hour)),
		msg("spaces/dm/messages/1", "users/222", ago(time.Hour), "hi"))
	recorder := &fakeRecorder{}

	_, err := newEngine(chat, knownIdentity(), nil, triage.WithRecorder(recorder)).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []recordedScan{{"completed", 1, 1}}, recorder.scans)
}

func TestResult_JSON(t *testing.T) {
	result, err := newEngine(triagetest.NewChat(), knownIdentity(), nil).Scan(context.Background(), triage.DefaultOptions())
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, []any{}, decoded["mentions"])
	assert.Equal(t, float64(0), decoded["scanned_count"])
	assert.Equal(t, float64(0), decoded["total_count"])
	source, ok := decoded["source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", source["exit_reason"])
	assert.Equal(t, []any{}, source["spaces"])
	assert.Equal(t, float64(0), source["total_messages_scanned"])
	assert.Equal(t, map[string]any{"get_me": float64(1), "list_spaces": float64(1)}, decoded["api_stats"])
}
