package triage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tier maps a conversation size to a lookback window.
// A nil MaxMembers matches any size.
type Tier struct {
	MaxMembers   *int `json:"max_members" yaml:"max_members"`
	LookbackDays int  `json:"lookback_days" yaml:"lookback_days"`
}

// BoundedTier returns a tier covering spaces with at most maxMembers members.
func BoundedTier(maxMembers, lookbackDays int) Tier {
	return Tier{MaxMembers: &maxMembers, LookbackDays: lookbackDays}
}

// UnboundedTier returns a tier matching any member count.
func UnboundedTier(lookbackDays int) Tier {
	return Tier{LookbackDays: lookbackDays}
}

// DefaultTiers is the default ladder: two week lookback for 1:1 conversations
// shrinking to one day for spaces of any size.
func DefaultTiers() []Tier {
	return []Tier{
		BoundedTier(2, 14),
		BoundedTier(10, 5),
		BoundedTier(50, 2),
		UnboundedTier(1),
	}
}

func (t Tier) String() string {
	if t.MaxMembers == nil {
		return fmt.Sprintf("*:%d", t.LookbackDays)
	}
	return fmt.Sprintf("%d:%d", *t.MaxMembers, t.LookbackDays)
}

// SortTiers returns a copy of tiers ordered by ascending MaxMembers with the
// unbounded tiers last. Equal bounds keep their input order.
func SortTiers(tiers []Tier) []Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].MaxMembers, sorted[j].MaxMembers
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return sorted
}

// ResolveLookback returns the lookback of the first tier that fits members.
// tiers must already be sorted with SortTiers. Zero means the space is not scanned.
func ResolveLookback(tiers []Tier, members int) int {
	for _, t := range tiers {
		if t.MaxMembers == nil || members <= *t.MaxMembers {
			return t.LookbackDays
		}
	}
	return 0
}

// ParseTier parses "MAX:DAYS". An empty MAX or "*" makes the tier unbounded.
func ParseTier(s string) (Tier, error) {
	maxPart, daysPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Tier{}, fmt.Errorf("invalid tier %q: expected MAX:DAYS", s)
	}
	days, err := strconv.Atoi(strings.TrimSpace(daysPart))
	if err != nil {
		return Tier{}, fmt.Errorf("invalid tier %q: lookback days: %w", s, err)
	}
	maxPart = strings.TrimSpace(maxPart)
	if maxPart == "" || maxPart == "*" {
		return UnboundedTier(days), nil
	}
	maxMembers, err := strconv.Atoi(maxPart)
	if err != nil {
		return Tier{}, fmt.Errorf("invalid tier %q: max members: %w", s, err)
	}
	if maxMembers < 0 {
		return Tier{}, fmt.Errorf("invalid tier %q: max members must not be negative", s)
	}
	return BoundedTier(maxMembers, days), nil
}

// ParseTiers parses a list of "MAX:DAYS" values.
func ParseTiers(values []string) ([]Tier, error) {
	tiers := make([]Tier, 0, len(values))
	for _, v := range values {
		t, err := ParseTier(v)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}
