package people

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"

	"github.com/teemow/gwsa/internal/cache"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/triage"
)

// UnknownName is returned when a user's name cannot be resolved.
const UnknownName = "Unknown"

const (
	meResource = "people/me"
	meKey      = "me"
)

// Client implements triage.IdentityResolver and triage.NameResolver.
type Client struct {
	svc     *people.Service
	cache   *cache.Store
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

var (
	_ triage.IdentityResolver = (*Client)(nil)
	_ triage.NameResolver     = (*Client)(nil)
)

type settings struct {
	endpoint string
	cache    *cache.Store
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithEndpoint points the client at a different API root.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithCache sets the profile cache. Without one an in-memory cache is used.
func WithCache(store *cache.Store) Option {
	return func(s *settings) { s.cache = store }
}

// WithMetrics records Google API and cache metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// NewClient creates a People client that sends requests through httpClient.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.endpoint))
	}
	svc, err := people.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}

	return &Client{
		svc:     svc,
		cache:   s.cache,
		metrics: s.metrics,
		logger:  s.logger,
	}, nil
}

func (c *Client) getPerson(ctx context.Context, resourceName, fields string) (*people.Person, error) {
	var person *people.Person
	start := time.Now()
	err := c.metrics.ObserveGoogleAPI(ctx, instrumentation.ServicePeople, "people.get", func(ctx context.Context) error {
		var err error
		person, err = c.svc.People.Get(resourceName).PersonFields(fields).Context(ctx).Do()
		return err
	})
	c.logger.DebugContext(ctx, "people api call",
		logging.Operation("people.get"),
		logging.Duration(time.Since(start)),
		logging.Err(err))
	return person, err
}

// lookup reads key through the cache, counting hits and misses.
func lookup[T any](ctx context.Context, c *Client, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.cache.Get(key, &cached) {
		c.metrics.RecordCacheLookup(ctx, "profiles", instrumentation.CacheHit)
		return cached, nil
	}
	c.metrics.RecordCacheLookup(ctx, "profiles", instrumentation.CacheMiss)
	return cache.GetOrLoad(ctx, c.cache, key, load)
}

// GetMe returns the authenticated user's identity.
func (c *Client) GetMe(ctx context.Context) (*triage.Identity, error) {
	me, err := lookup(ctx, c, meKey, func(ctx context.Context) (triage.Identity, error) {
		person, err := c.getPerson(ctx, meResource, "names,emailAddresses")
		if err != nil {
			return triage.Identity{}, fmt.Errorf("failed to get own profile: %w", err)
		}
		return identityFromPerson(person), nil
	})
	if err != nil {
		return nil, err
	}
	return &me, nil
}

func identityFromPerson(p *people.Person) triage.Identity {
	id := triage.Identity{ResourceName: p.ResourceName}
	for _, n := range p.Names {
		if n != nil && n.DisplayName != "" {
			id.DisplayName = n.DisplayName
			break
		}
	}
	for _, e := range p.EmailAddresses {
		if e != nil && e.Value != "" {
			id.Email = e.Value
			break
		}
	}
	return id
}

// PersonResourceName converts a Chat user name (users/<id>) or a bare id
// into a People resource name (people/<id>).
func PersonResourceName(userID string) string {
	id := strings.TrimPrefix(userID, "users/")
	id = strings.TrimPrefix(id, "people/")
	return "people/" + id
}

// ResolvePersonName returns the display name of a Chat user. It never fails:
// lookup errors yield UnknownName and are not cached, while a person without
// a name is cached as UnknownName.
func (c *Client) ResolvePersonName(ctx context.Context, userID string) string {
	if userID == "" {
		return UnknownName
	}
	resource := PersonResourceName(userID)
	key := strings.TrimPrefix(resource, "people/")

	name, err := lookup(ctx, c, key, func(ctx context.Context) (string, error) {
		person, err := c.getPerson(ctx, resource, "names")
		if err != nil {
			return "", err
		}
		if name := identityFromPerson(person).DisplayName; name != "" {
			return name, nil
		}
		return UnknownName, nil
	})
	if err != nil {
		c.logger.DebugContext(ctx, "failed to resolve person name",
			slog.String("user_id", userID),
			logging.Err(err))
		return UnknownName
	}
	return name
}
