package triage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/gwsa/internal/logging"
)

// explicitFetchSize is the number of newest messages fetched for spaces above
// the implicit threshold. Implicit spaces only ever fetch the latest message.
const explicitFetchSize = 20

// unknownSpace is used as item title for spaces without a display name.
const unknownSpace = "Unknown Space"

type scanner struct {
	client ChatClient
	names  NameResolver
	me     Self
	opts   Options
	logger *slog.Logger
}

// unknownSpaceName labels the stats of a space without a display name.
const unknownSpaceName = "Unknown"

func newSpaceStats(c Candidate) SpaceStats {
	name := c.Space.DisplayName
	if name == "" {
		name = unknownSpaceName
	}
	return SpaceStats{
		ID:           c.Space.Name,
		Name:         name,
		Type:         c.Space.Type,
		Members:      c.Members,
		LastActive:   c.LastActive,
		LookbackDays: c.LookbackDays,
	}
}

// fetchSize returns how many messages to request for a space, bounded by
// the remaining message budget.
func (s *scanner) fetchSize(implicit bool, remaining int) int {
	n := explicitFetchSize
	if implicit {
		n = 1
	}
	if remaining < n {
		n = remaining
	}
	return n
}

// scanSpace walks the newest messages of one candidate and returns at most
// one actionable item. remaining is the unused message budget, always > 0.
func (s *scanner) scanSpace(ctx context.Context, c Candidate, remaining int) (SpaceStats, *ActionableItem, error) {
	stats := newSpaceStats(c)
	logger := s.logger.With(logging.Space(c.Space.Name))

	implicit := c.Members <= s.opts.ImplicitMentionThreshold
	if implicit && !s.me.Known() {
		stats.Skipped = SkipIdentityUnknown
		logger.Debug("skipping implicit space without own identity")
		return stats, nil, nil
	}

	logger.Debug("scanning space",
		slog.String("display_name", c.Space.DisplayName),
		slog.Int("members", c.Members),
		slog.Int("lookback_days", c.LookbackDays),
		slog.Bool("implicit", implicit))

	limit := s.fetchSize(implicit, remaining)
	page, err := s.client.ListMessages(ctx, ListMessagesRequest{
		Space:    c.Space.Name,
		PageSize: limit,
		OrderBy:  OrderNewestFirst,
	})
	if err != nil {
		return stats, nil, fmt.Errorf("failed to list messages of %s: %w", c.Space.Name, err)
	}
	var messages []Message
	if page != nil {
		messages = page.Messages
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	stats.MessagesScanned = len(messages)

	responded := false
	for _, msg := range messages {
		if msg.CreateTime.Before(c.Cutoff) {
			logger.Debug("message outside lookback window", slog.String("message", msg.Name))
			continue
		}
		stats.MessagesInRange++

		if s.me.Known() && msg.SenderID == s.me.ID {
			responded = true
			if s.opts.UnansweredOnly {
				logger.Debug("latest relevant message is mine", slog.String("message", msg.Name))
				break
			}
			continue
		}

		kind, reason, ok := Classify(msg, s.me, implicit, responded)
		if !ok {
			continue
		}
		stats.MentionsFound++

		if s.opts.UnansweredOnly {
			reacted, err := reactedByMe(ctx, s.client, msg.Name, s.me.ID)
			if err != nil {
				logger.Debug("reaction check failed, keeping item", slog.String("message", msg.Name), logging.Err(err))
			}
			if reacted {
				logger.Debug("message handled by reaction", slog.String("message", msg.Name))
				continue
			}
		}

		stats.UnansweredMentions++
		title := c.Space.DisplayName
		if title == "" {
			title = unknownSpace
		}
		item := &ActionableItem{
			Type:       kind,
			Space:      title,
			SpaceID:    c.Space.Name,
			Members:    c.Members,
			ThreadName: msg.ThreadName,
			Time:       msg.CreateTime,
			Sender:     SenderName(ctx, s.names, msg),
			Text:       Preview(msg.Text),
			Reason:     reason,
		}
		logger.Debug("actionable item found", slog.String("message", msg.Name), slog.String("reason", reason))
		return stats, item, nil
	}
	return stats, nil, nil
}
