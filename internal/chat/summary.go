package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/gwsa/internal/triage"
)

// SpaceSummary is the listing view of a space.
type SpaceSummary struct {
	Name           string           `json:"name"`
	DisplayName    string           `json:"display_name"`
	Type           triage.SpaceType `json:"type"`
	Members        int              `json:"members"`
	LastActiveTime time.Time        `json:"last_active_time,omitzero"`
	Participants   []string         `json:"participants,omitempty"`
}

// MessageSummary is the listing view of a message with a resolved sender.
type MessageSummary struct {
	Name       string    `json:"name"`
	Sender     string    `json:"sender"`
	SenderID   string    `json:"sender_id"`
	CreateTime time.Time `json:"create_time"`
	Text       string    `json:"text"`
	Thread     string    `json:"thread,omitempty"`
}

// SpaceTypeFilter returns the spaces.list filter selecting one space type.
func SpaceTypeFilter(t triage.SpaceType) string {
	if t == "" {
		return ""
	}
	return fmt.Sprintf("spaceType = %q", string(t))
}

// SummarizeSpaces converts spaces into listing views. When withNames is set,
// participant names are read from the membership list; direct messages
// without a display name are then titled after the other participants.
func SummarizeSpaces(ctx context.Context, client triage.ChatClient, spaces []triage.Space, withNames bool) []SpaceSummary {
	out := make([]SpaceSummary, 0, len(spaces))
	for _, s := range spaces {
		summary := SpaceSummary{
			Name:           s.Name,
			DisplayName:    s.DisplayName,
			Type:           s.Type,
			Members:        triage.MemberCount(s),
			LastActiveTime: s.LastActiveTime,
		}
		if withNames {
			if members, err := client.ListMembers(ctx, s.Name, MembersPageSize); err == nil {
				for _, m := range members {
					if m.DisplayName != "" {
						summary.Participants = append(summary.Participants, m.DisplayName)
					}
				}
			}
		}
		if summary.DisplayName == "" {
			summary.DisplayName = defaultTitle(summary)
		}
		out = append(out, summary)
	}
	return out
}

func defaultTitle(s SpaceSummary) string {
	if len(s.Participants) > 0 {
		return strings.Join(s.Participants, ", ")
	}
	if s.Type == triage.SpaceTypeDirectMessage {
		return "(direct message)"
	}
	return "(unnamed)"
}

// SummarizeMessages resolves the sender of every message.
func SummarizeMessages(ctx context.Context, names triage.NameResolver, messages []triage.Message) []MessageSummary {
	out := make([]MessageSummary, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageSummary{
			Name:       m.Name,
			Sender:     triage.SenderName(ctx, names, m),
			SenderID:   m.SenderID,
			CreateTime: m.CreateTime,
			Text:       m.Text,
			Thread:     m.ThreadName,
		})
	}
	return out
}
