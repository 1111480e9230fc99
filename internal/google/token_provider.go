package google

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider provides OAuth token sources for Google APIs per profile.
// This abstraction keeps API adapters independent of where credentials live.
type TokenProvider interface {
	// TokenSource returns a token source for the specified profile.
	TokenSource(ctx context.Context, profile string) (oauth2.TokenSource, error)

	// HasToken checks if credentials exist for the specified profile.
	HasToken(profile string) bool
}

// FileTokenProvider provides tokens from the on-disk profile store.
type FileTokenProvider struct {
	store *ProfileStore
	conf  *oauth2.Config
}

// NewFileTokenProvider creates a new file-based token provider. conf may be
// nil, in which case only unexpired tokens and the ADC profile work.
func NewFileTokenProvider(store *ProfileStore, conf *oauth2.Config) *FileTokenProvider {
	return &FileTokenProvider{store: store, conf: conf}
}

// TokenSource returns a refreshing token source for profile.
func (p *FileTokenProvider) TokenSource(ctx context.Context, profile string) (oauth2.TokenSource, error) {
	return p.store.TokenSource(ctx, profile, p.conf)
}

// HasToken checks if a token file exists for the specified profile.
func (p *FileTokenProvider) HasToken(profile string) bool {
	return p.store.Exists(profile)
}
