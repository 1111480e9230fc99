package chat

import (
	"time"

	chat "google.golang.org/api/chat/v1"

	"github.com/teemow/gwsa/internal/triage"
)

// defaultJoinedCount is assumed when a membership count object carries no
// direct human count.
const defaultJoinedCount = 2

func convertSpace(s *chat.Space) triage.Space {
	space := triage.Space{
		Name:           s.Name,
		DisplayName:    s.DisplayName,
		Type:           triage.SpaceType(s.SpaceType),
		LastActiveTime: parseTime(s.LastActiveTime),
	}
	if space.Type == "" {
		space.Type = legacySpaceType(s.Type)
	}
	if s.MembershipCount != nil {
		count := int(s.MembershipCount.JoinedDirectHumanUserCount)
		if count == 0 {
			count = defaultJoinedCount
		}
		space.MemberCount = &count
	}
	return space
}

// legacySpaceType maps the deprecated type field (ROOM, DM) onto spaceType.
func legacySpaceType(t string) triage.SpaceType {
	switch t {
	case "DM":
		return triage.SpaceTypeDirectMessage
	case "ROOM":
		return triage.SpaceTypeSpace
	}
	return triage.SpaceType(t)
}

func convertMessage(m *chat.Message) triage.Message {
	msg := triage.Message{
		Name:       m.Name,
		CreateTime: parseTime(m.CreateTime),
		Text:       m.Text,
	}
	if m.Sender != nil {
		msg.SenderID = m.Sender.Name
		msg.SenderDisplayName = m.Sender.DisplayName
	}
	if m.Thread != nil {
		msg.ThreadName = m.Thread.Name
	}
	for _, a := range m.Annotations {
		if a == nil {
			continue
		}
		annotation := triage.Annotation{Type: a.Type}
		if a.UserMention != nil && a.UserMention.User != nil {
			annotation.UserID = a.UserMention.User.Name
		}
		msg.Annotations = append(msg.Annotations, annotation)
	}
	return msg
}

// parseTime parses the API's RFC 3339 timestamps. Unparseable values become
// the zero time, which sorts before every cutoff.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
