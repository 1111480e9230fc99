package triage

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/teemow/gwsa/internal/logging"
)

// Candidate is a space that passed tier and recency filtering.
type Candidate struct {
	Space        Space
	Members      int
	LookbackDays int
	TypeScore    int
	LastActive   time.Time
	Cutoff       time.Time
}

// MemberCount returns the member count used for tier matching.
func MemberCount(s Space) int {
	switch {
	case s.MemberCount != nil:
		return *s.MemberCount
	case s.Type == SpaceTypeDirectMessage:
		return 2
	default:
		return 0
	}
}

// TypeScore ranks conversations from most to least intimate:
// 0 for a 1:1 DM, 1 for group DMs and group chats, 2 for named spaces.
// An unnamed GROUP_CHAT is a group conversation like a multi-person DM, so
// it is scanned ahead of named spaces of any size.
func TypeScore(t SpaceType, members int) int {
	switch t {
	case SpaceTypeDirectMessage:
		if members <= 2 {
			return 0
		}
		return 1
	case SpaceTypeGroupChat:
		return 1
	default:
		return 2
	}
}

// Lookback converts a number of days to a duration.
func Lookback(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// SelectCandidates filters spaces by tier and recency and orders them by
// (TypeScore, Members). tiers must be sorted.
func SelectCandidates(spaces []Space, tiers []Tier, now time.Time) []Candidate {
	candidates := make([]Candidate, 0, len(spaces))
	for _, s := range spaces {
		members := MemberCount(s)
		days := ResolveLookback(tiers, members)
		if days <= 0 {
			continue
		}
		cutoff := now.Add(-Lookback(days))
		if !s.LastActiveTime.After(cutoff) {
			continue
		}
		candidates = append(candidates, Candidate{
			Space:        s,
			Members:      members,
			LookbackDays: days,
			TypeScore:    TypeScore(s.Type, members),
			LastActive:   s.LastActiveTime,
			Cutoff:       cutoff,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TypeScore != candidates[j].TypeScore {
			return candidates[i].TypeScore < candidates[j].TypeScore
		}
		return candidates[i].Members < candidates[j].Members
	})
	return candidates
}

// discoverSpaces pages through ListSpaces until there are no more pages or
// limit spaces were collected. A failing page ends discovery with what was
// collected so far.
func discoverSpaces(ctx context.Context, client ChatClient, limit int, logger *slog.Logger) []Space {
	var spaces []Space
	token := ""
	for {
		page, err := client.ListSpaces(ctx, ListSpacesRequest{
			PageSize:  SpacesPageSize,
			PageToken: token,
			Fields:    SpaceFields,
		})
		if err != nil {
			logger.Error("failed to list spaces", logging.Err(err), slog.Int("collected", len(spaces)))
			break
		}
		if page == nil {
			break
		}
		spaces = append(spaces, page.Spaces...)
		token = page.NextPageToken
		if token == "" || len(spaces) >= limit {
			break
		}
	}
	if len(spaces) > limit {
		spaces = spaces[:limit]
	}
	return spaces
}
