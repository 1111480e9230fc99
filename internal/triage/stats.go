package triage

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/teemow/gwsa/internal/logging"
)

// Logical API call names reported in Result.APIStats.
const (
	CallListSpaces        = "list_spaces"
	CallListMembers       = "list_members"
	CallListSpaceMessages = "list_space_messages"
	CallListReactions     = "list_reactions"
	CallGetMe             = "get_me"
	CallResolvePersonName = "resolve_person_name"
)

// APIStats counts logical API calls. A new instance is created for every scan.
type APIStats struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewAPIStats returns an empty counter.
func NewAPIStats() *APIStats {
	return &APIStats{counts: make(map[string]int)}
}

// Inc increments the counter for call.
func (s *APIStats) Inc(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[call]++
}

// Total returns the sum of all counters.
func (s *APIStats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Snapshot returns a copy of the counters.
func (s *APIStats) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counts)
}

// countedCall records one logical call and logs its duration.
func countedCall(stats *APIStats, logger *slog.Logger, call string) func(error) {
	stats.Inc(call)
	start := time.Now()
	return func(err error) {
		status := logging.StatusSuccess
		if err != nil {
			status = logging.StatusError
		}
		logger.Debug("api call",
			logging.Operation(call),
			logging.Duration(time.Since(start)),
			logging.Status(status))
	}
}

// countingClient decorates a ChatClient with per-scan call counting.
type countingClient struct {
	next   ChatClient
	stats  *APIStats
	logger *slog.Logger
}

func (c *countingClient) ListSpaces(ctx context.Context, req ListSpacesRequest) (*SpacePage, error) {
	done := countedCall(c.stats, c.logger, CallListSpaces)
	page, err := c.next.ListSpaces(ctx, req)
	done(err)
	return page, err
}

func (c *countingClient) ListMembers(ctx context.Context, space string, pageSize int) ([]Member, error) {
	done := countedCall(c.stats, c.logger, CallListMembers)
	members, err := c.next.ListMembers(ctx, space, pageSize)
	done(err)
	return members, err
}

func (c *countingClient) ListMessages(ctx context.Context, req ListMessagesRequest) (*MessagePage, error) {
	done := countedCall(c.stats, c.logger, CallListSpaceMessages)
	page, err := c.next.ListMessages(ctx, req)
	done(err)
	return page, err
}

func (c *countingClient) ListReactions(ctx context.Context, message string) ([]Reaction, error) {
	done := countedCall(c.stats, c.logger, CallListReactions)
	reactions, err := c.next.ListReactions(ctx, message)
	done(err)
	return reactions, err
}

type countingIdentity struct {
	next   IdentityResolver
	stats  *APIStats
	logger *slog.Logger
}

func (c *countingIdentity) GetMe(ctx context.Context) (*Identity, error) {
	done := countedCall(c.stats, c.logger, CallGetMe)
	me, err := c.next.GetMe(ctx)
	done(err)
	return me, err
}

type countingNames struct {
	next   NameResolver
	stats  *APIStats
	logger *slog.Logger
}

func (c *countingNames) ResolvePersonName(ctx context.Context, userID string) string {
	done := countedCall(c.stats, c.logger, CallResolvePersonName)
	name := c.next.ResolvePersonName(ctx, userID)
	done(nil)
	return name
}
