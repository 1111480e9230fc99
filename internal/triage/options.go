package triage

import (
	"errors"
	"fmt"
)

// Scan defaults.
const (
	DefaultSpaceLimit               = 20
	DefaultImplicitMentionThreshold = 3
	DefaultDiscoveryLimit           = 200
	DefaultMessageScanLimit         = 100
)

// Options configures a single scan.
type Options struct {
	// SpaceLimit caps the number of candidate spaces inspected.
	SpaceLimit int `json:"space_limit" yaml:"space_limit"`
	// ImplicitMentionThreshold is the largest member count for which any
	// unanswered message is actionable.
	ImplicitMentionThreshold int `json:"implicit_mention_threshold" yaml:"implicit_mention_threshold"`
	// Tiers is the lookback ladder. Nil selects DefaultTiers.
	Tiers []Tier `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	// DiscoveryLimit caps the number of raw spaces listed.
	DiscoveryLimit int `json:"discovery_limit" yaml:"discovery_limit"`
	// MessageScanLimit caps the number of messages fetched across all spaces.
	MessageScanLimit int `json:"message_scan_limit" yaml:"message_scan_limit"`
	// UnansweredOnly drops items the caller already answered or reacted to.
	UnansweredOnly bool `json:"unanswered_only" yaml:"unanswered_only"`
}

// DefaultOptions returns the default scan configuration.
func DefaultOptions() Options {
	return Options{
		SpaceLimit:               DefaultSpaceLimit,
		ImplicitMentionThreshold: DefaultImplicitMentionThreshold,
		Tiers:                    DefaultTiers(),
		DiscoveryLimit:           DefaultDiscoveryLimit,
		MessageScanLimit:         DefaultMessageScanLimit,
		UnansweredOnly:           true,
	}
}

// ErrInvalidOptions is returned by Validate.
var ErrInvalidOptions = errors.New("invalid scan options")

// Validate checks that the limits are usable.
func (o Options) Validate() error {
	var errs []error
	if o.SpaceLimit < 0 {
		errs = append(errs, fmt.Errorf("space limit must not be negative, got %d", o.SpaceLimit))
	}
	if o.ImplicitMentionThreshold < 0 {
		errs = append(errs, fmt.Errorf("implicit mention threshold must not be negative, got %d", o.ImplicitMentionThreshold))
	}
	if o.DiscoveryLimit <= 0 {
		errs = append(errs, fmt.Errorf("discovery limit must be positive, got %d", o.DiscoveryLimit))
	}
	if o.MessageScanLimit < 0 {
		errs = append(errs, fmt.Errorf("message scan limit must not be negative, got %d", o.MessageScanLimit))
	}
	for i, t := range o.Tiers {
		if t.MaxMembers != nil && *t.MaxMembers < 0 {
			errs = append(errs, fmt.Errorf("tier %d: max members must not be negative", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return nil
}
