package triage

import (
	"context"
	"strings"
)

// maxPreviewRunes is the length of the text preview on an actionable item.
const maxPreviewRunes = 100

// unknownSender is returned when no sender name could be found.
const unknownSender = "Unknown"

// Classify decides whether msg is actionable for me. implicit selects the
// small space rule; responded reports whether a newer message from me was seen.
func Classify(msg Message, me Self, implicit, responded bool) (MentionType, string, bool) {
	if responded {
		return "", "", false
	}
	if implicit {
		return MentionImplicit, ReasonUnreplied, true
	}
	if MentionsMe(msg, me) {
		return MentionExplicit, ReasonExplicitMention, true
	}
	return "", "", false
}

// MentionsMe reports whether msg tags me through a USER_MENTION annotation
// or contains "@" followed by my first name.
func MentionsMe(msg Message, me Self) bool {
	if me.ID != "" {
		for _, a := range msg.Annotations {
			if a.Type == AnnotationUserMention && a.UserID == me.ID {
				return true
			}
		}
	}
	return me.FirstName != "" && strings.Contains(msg.Text, "@"+me.FirstName)
}

// reactedByMe reports whether I reacted to the message. The error is returned
// so the caller can keep the item when the check fails.
func reactedByMe(ctx context.Context, client ChatClient, message, myID string) (bool, error) {
	reactions, err := client.ListReactions(ctx, message)
	if err != nil {
		return false, err
	}
	for _, r := range reactions {
		if myID != "" && r.UserID == myID {
			return true, nil
		}
	}
	return false, nil
}

// SenderName resolves a display name for the author of msg: the name carried
// on the message, then a People lookup, then the email, then "Unknown".
func SenderName(ctx context.Context, names NameResolver, msg Message) string {
	name := msg.SenderDisplayName
	if name == "" && msg.SenderID != "" && names != nil {
		name = names.ResolvePersonName(ctx, msg.SenderID)
	}
	if name == "" || name == unknownSender {
		if msg.SenderEmail != "" {
			return msg.SenderEmail
		}
		return unknownSender
	}
	return name
}

// Preview truncates text to the first 100 runes.
func Preview(text string) string {
	n := 0
	for i := range text {
		if n == maxPreviewRunes {
			return text[:i]
		}
		n++
	}
	return text
}
