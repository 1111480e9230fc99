package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/gwsa/internal/config"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/triage"
)

// app is the configuration shared by the commands of one invocation.
type app struct {
	configPath string
	cfg        *config.Config
	profiles   *google.ProfileStore
	// oauth is nil when no OAuth client is configured; the adc profile and
	// unexpired tokens still work without one.
	oauth  *oauth2.Config
	logger *slog.Logger
}

// clientFactory builds the Google adapters of a profile. Tests replace it.
var clientFactory = func(a *app, metrics *instrumentation.Metrics) server.ClientFactory {
	tokens := google.NewFileTokenProvider(a.profiles, a.oauth)
	return server.GoogleClientFactory(tokens, metrics, a.logger)
}

func loadApp(g *globalOptions) (*app, error) {
	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	conf, err := google.NewOAuthConfig(cfg.OAuth)
	if err != nil && !errors.Is(err, google.ErrNoOAuthClient) {
		return nil, err
	}

	return &app{
		configPath: path,
		cfg:        cfg,
		profiles:   google.NewProfileStore(path),
		oauth:      conf,
		logger:     g.Logger(),
	}, nil
}

// triageOptions returns the built-in scan defaults overlaid with the
// config file's triage section.
func (a *app) triageOptions() triage.Options {
	return a.cfg.Triage.Apply(triage.DefaultOptions())
}

func (a *app) serverContext(ctx context.Context, metrics *instrumentation.Metrics, opts ...server.Option) *server.ServerContext {
	base := []server.Option{
		server.WithClientFactory(clientFactory(a, metrics)),
		server.WithTriageOptions(a.triageOptions()),
		server.WithLogger(a.logger),
	}
	if a.oauth != nil {
		base = append(base, server.WithOAuthConfig(a.oauth))
	}
	return server.NewServerContext(ctx, a.profiles, append(base, opts...)...)
}

// resolveProfile turns --profile or the active profile into a name, with a
// hint when neither is set.
func resolveProfile(sc *server.ServerContext, requested string) (string, error) {
	profile, err := sc.ResolveProfile(requested)
	if errors.Is(err, google.ErrNoActiveProfile) {
		return "", fmt.Errorf("%w: pass --profile or run 'gwsa profiles switch NAME'", err)
	}
	return profile, err
}
