package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/oauth2"

	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/triage"
)

// ErrShutdown is returned once the server context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// ProfileClients bundles the Google API adapters of one profile.
type ProfileClients struct {
	Chat     triage.ChatClient
	Identity triage.IdentityResolver
	Names    triage.NameResolver
}

// ClientFactory builds the adapters for a profile.
type ClientFactory func(ctx context.Context, profile string) (*ProfileClients, error)

// ServerContext holds the state shared by all MCP tool handlers.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	profiles *google.ProfileStore
	factory  ClientFactory
	clients  map[string]*ProfileClients // keyed by profile name
	provider *instrumentation.Provider
	oauth    *oauth2.Config
	triage   triage.Options
	logger   *slog.Logger
	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithClientFactory sets how per-profile clients are created.
func WithClientFactory(f ClientFactory) Option {
	return func(sc *ServerContext) { sc.factory = f }
}

// WithInstrumentation sets the telemetry provider.
func WithInstrumentation(p *instrumentation.Provider) Option {
	return func(sc *ServerContext) { sc.provider = p }
}

// WithOAuthConfig sets the OAuth client used by the authorization tools.
func WithOAuthConfig(conf *oauth2.Config) Option {
	return func(sc *ServerContext) { sc.oauth = conf }
}

// WithTriageOptions sets the defaults used by chat_get_mentions.
func WithTriageOptions(opts triage.Options) Option {
	return func(sc *ServerContext) { sc.triage = opts }
}

// WithLogger sets the logger handed to tools.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = logger }
}

// NewServerContext creates a new server context. Without WithClientFactory
// clients can only be installed with SetClientsForProfile.
func NewServerContext(ctx context.Context, profiles *google.ProfileStore, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		profiles: profiles,
		clients:  make(map[string]*ProfileClients),
		triage:   triage.DefaultOptions(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Profiles returns the profile store.
func (sc *ServerContext) Profiles() *google.ProfileStore {
	return sc.profiles
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// TriageOptions returns the configured scan defaults.
func (sc *ServerContext) TriageOptions() triage.Options {
	return sc.triage
}

// OAuthConfig returns the OAuth client configuration, or nil when none is
// configured.
func (sc *ServerContext) OAuthConfig() *oauth2.Config {
	return sc.oauth
}

// Metrics returns the metrics recorder. It is safe to use when
// instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.provider == nil {
		return nil
	}
	return sc.provider.Metrics()
}

// Tracer returns a tracer for scan spans.
func (sc *ServerContext) Tracer() trace.Tracer {
	if sc.provider == nil {
		return noop.NewTracerProvider().Tracer(instrumentation.TracerName)
	}
	return sc.provider.Tracer(instrumentation.TracerName)
}

// ResolveProfile returns requested when set, otherwise the active profile.
func (sc *ServerContext) ResolveProfile(requested string) (string, error) {
	if sc.profiles == nil {
		if requested == "" {
			return "", google.ErrNoActiveProfile
		}
		return requested, google.ValidateProfileName(requested)
	}
	return sc.profiles.Resolve(requested)
}

// ClientsForProfile returns the adapters of profile, creating and caching
// them on first use.
func (sc *ServerContext) ClientsForProfile(profile string) (*ProfileClients, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if clients, ok := sc.clients[profile]; ok {
		return clients, nil
	}
	if sc.factory == nil {
		return nil, fmt.Errorf("no clients configured for profile %s", profile)
	}

	clients, err := sc.factory(sc.ctx, profile)
	if err != nil {
		sc.logger.Warn("failed to create clients",
			logging.Profile(profile),
			logging.Err(err))
		return nil, err
	}
	sc.clients[profile] = clients
	return clients, nil
}

// SetClientsForProfile installs the adapters of profile.
func (sc *ServerContext) SetClientsForProfile(profile string, clients *ProfileClients) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clients[profile] = clients
}

// InvalidateProfile drops cached adapters so the next call picks up new
// credentials.
func (sc *ServerContext) InvalidateProfile(profile string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.clients, profile)
}

// NewEngine returns a triage engine over the adapters of profile.
func (sc *ServerContext) NewEngine(profile string) (*triage.Engine, error) {
	clients, err := sc.ClientsForProfile(profile)
	if err != nil {
		return nil, err
	}
	return triage.NewEngine(clients.Chat, clients.Identity, clients.Names,
		triage.WithLogger(sc.logger.With(logging.Profile(profile))),
		triage.WithTracer(sc.Tracer()),
		triage.WithRecorder(sc.Metrics()),
	), nil
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drops all clients.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.clients = make(map[string]*ProfileClients)
	sc.cancel()
	return nil
}
