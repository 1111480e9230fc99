package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	chat "google.golang.org/api/chat/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/gwsa/internal/cache"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/triage"
)

// DefaultRequestsPerSecond stays well below the Chat API per-user read quota.
const DefaultRequestsPerSecond = 10

// MembersPageSize is the page size used when listing memberships.
const MembersPageSize = 100

// Client implements triage.ChatClient on top of chat/v1.
type Client struct {
	svc     *chat.Service
	limiter *rate.Limiter
	members *cache.Store
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

var _ triage.ChatClient = (*Client)(nil)

type settings struct {
	endpoint string
	limiter  *rate.Limiter
	members  *cache.Store
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithEndpoint points the client at a different API root.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithRateLimit replaces the default limiter. A nil limiter disables limiting.
func WithRateLimit(l *rate.Limiter) Option {
	return func(s *settings) { s.limiter = l }
}

// WithMemberCache caches ListMembers results per space.
func WithMemberCache(store *cache.Store) Option {
	return func(s *settings) { s.members = store }
}

// WithMetrics records Google API and cache metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// NewClient creates a Chat client that sends requests through httpClient,
// which must already carry the profile's credentials.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	s := settings{
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.endpoint))
	}
	svc, err := chat.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chat service: %w", err)
	}

	return &Client{
		svc:     svc,
		limiter: s.limiter,
		members: s.members,
		metrics: s.metrics,
		logger:  s.logger,
	}, nil
}

// do waits for the limiter and runs fn as an observed Google API call.
func (c *Client) do(ctx context.Context, operation string, attrs *instrumentation.SpanAttributeBuilder, fn func(context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	start := time.Now()
	err := c.metrics.ObserveGoogleAPI(ctx, instrumentation.ServiceChat, operation, fn, attrs.Build()...)
	c.logger.DebugContext(ctx, "chat api call",
		logging.Operation(operation),
		logging.Duration(time.Since(start)),
		logging.Err(err))
	return err
}

// ListSpaces returns one page of the caller's spaces.
func (c *Client) ListSpaces(ctx context.Context, req triage.ListSpacesRequest) (*triage.SpacePage, error) {
	call := c.svc.Spaces.List()
	if req.Filter != "" {
		call = call.Filter(req.Filter)
	}
	if req.PageSize > 0 {
		call = call.PageSize(int64(req.PageSize))
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	if req.Fields != "" {
		call = call.Fields(googleapi.Field(req.Fields))
	}

	var resp *chat.ListSpacesResponse
	attrs := instrumentation.NewSpanAttributeBuilder().WithPageSize(req.PageSize)
	err := c.do(ctx, "spaces.list", attrs, func(ctx context.Context) error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	page := &triage.SpacePage{
		Spaces:        make([]triage.Space, 0, len(resp.Spaces)),
		NextPageToken: resp.NextPageToken,
	}
	for _, s := range resp.Spaces {
		page.Spaces = append(page.Spaces, convertSpace(s))
	}
	return page, nil
}

// ListMembers returns the first page of memberships of space. Results are
// served from the member cache when one is configured.
func (c *Client) ListMembers(ctx context.Context, space string, pageSize int) ([]triage.Member, error) {
	if pageSize <= 0 {
		pageSize = MembersPageSize
	}
	if c.members == nil {
		return c.fetchMembers(ctx, space, pageSize)
	}

	var cached []triage.Member
	if c.members.Get(space, &cached) {
		c.metrics.RecordCacheLookup(ctx, "members", instrumentation.CacheHit)
		return cached, nil
	}
	c.metrics.RecordCacheLookup(ctx, "members", instrumentation.CacheMiss)
	return cache.GetOrLoad(ctx, c.members, space, func(ctx context.Context) ([]triage.Member, error) {
		return c.fetchMembers(ctx, space, pageSize)
	})
}

func (c *Client) fetchMembers(ctx context.Context, space string, pageSize int) ([]triage.Member, error) {
	var resp *chat.ListMembershipsResponse
	attrs := instrumentation.NewSpanAttributeBuilder().WithSpace(space).WithPageSize(pageSize)
	err := c.do(ctx, "spaces.members.list", attrs, func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Spaces.Members.List(space).PageSize(int64(pageSize)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", space, err)
	}

	members := make([]triage.Member, 0, len(resp.Memberships))
	for _, m := range resp.Memberships {
		member := triage.Member{Name: m.Name}
		if m.Member != nil {
			member.UserID = m.Member.Name
			member.DisplayName = m.Member.DisplayName
			member.Type = m.Member.Type
		}
		members = append(members, member)
	}
	return members, nil
}

// ListMessages returns one page of messages of a space.
func (c *Client) ListMessages(ctx context.Context, req triage.ListMessagesRequest) (*triage.MessagePage, error) {
	call := c.svc.Spaces.Messages.List(req.Space)
	if req.PageSize > 0 {
		call = call.PageSize(int64(req.PageSize))
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	if req.OrderBy != "" {
		call = call.OrderBy(req.OrderBy)
	}
	if req.Filter != "" {
		call = call.Filter(req.Filter)
	}

	var resp *chat.ListMessagesResponse
	attrs := instrumentation.NewSpanAttributeBuilder().WithSpace(req.Space).WithPageSize(req.PageSize)
	err := c.do(ctx, "spaces.messages.list", attrs, func(ctx context.Context) error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", req.Space, err)
	}

	page := &triage.MessagePage{
		Messages:      make([]triage.Message, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, convertMessage(m))
	}
	return page, nil
}

// ListReactions returns the reactions on a message.
func (c *Client) ListReactions(ctx context.Context, message string) ([]triage.Reaction, error) {
	var resp *chat.ListReactionsResponse
	attrs := instrumentation.NewSpanAttributeBuilder().WithMessage(message)
	err := c.do(ctx, "spaces.messages.reactions.list", attrs, func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Spaces.Messages.Reactions.List(message).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions of %s: %w", message, err)
	}

	reactions := make([]triage.Reaction, 0, len(resp.Reactions))
	for _, r := range resp.Reactions {
		reaction := triage.Reaction{}
		if r.User != nil {
			reaction.UserID = r.User.Name
		}
		if r.Emoji != nil {
			reaction.Emoji = r.Emoji.Unicode
		}
		reactions = append(reactions, reaction)
	}
	return reactions, nil
}
