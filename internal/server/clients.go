package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/teemow/gwsa/internal/cache"
	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/people"
)

// GoogleClientFactory creates Chat and People adapters authenticated
// through tokens, with the profile's on-disk caches.
func GoogleClientFactory(tokens google.TokenProvider, metrics *instrumentation.Metrics, logger *slog.Logger) ClientFactory {
	return func(ctx context.Context, profile string) (*ProfileClients, error) {
		ts, err := tokens.TokenSource(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", google.AuthenticationErrorMessage(profile), err)
		}
		httpClient := google.HTTPClient(ctx, ts)

		dir, err := cache.DefaultDir(profile)
		if err != nil {
			return nil, err
		}
		cacheLogger := logger.With(logging.Profile(profile))
		members := cache.Open(filepath.Join(dir, cache.MembersFile), cache.WithLogger(cacheLogger))
		profiles := cache.Open(filepath.Join(dir, cache.ProfilesFile), cache.WithLogger(cacheLogger))

		chatClient, err := chat.NewClient(ctx, httpClient,
			chat.WithMemberCache(members),
			chat.WithMetrics(metrics),
			chat.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		peopleClient, err := people.NewClient(ctx, httpClient,
			people.WithCache(profiles),
			people.WithMetrics(metrics),
			people.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}

		return &ProfileClients{
			Chat:     chatClient,
			Identity: peopleClient,
			Names:    peopleClient,
		}, nil
	}
}
