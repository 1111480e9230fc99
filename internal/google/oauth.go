package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gwsa/internal/config"
	"github.com/teemow/gwsa/internal/logging"
)

// oobRedirectURL makes Google show the authorization code to the user, who
// then pastes it into "gwsa auth save".
const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// ErrNoOAuthClient is returned when no OAuth client is configured.
var ErrNoOAuthClient = errors.New("no OAuth client configured: set oauth.client_id and oauth.client_secret in the config file or GWSA_OAUTH_CLIENT_ID/GWSA_OAUTH_CLIENT_SECRET")

// NewOAuthConfig returns the OAuth2 configuration for the configured client.
func NewOAuthConfig(cfg config.OAuthConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoOAuthClient
	}
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = oobRedirectURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}, nil
}

// AuthURL returns the consent URL the user has to open. Offline access is
// requested so the stored token carries a refresh token.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token.
func ExchangeCode(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// TokenSource returns a token source for a profile. The ADC profile uses
// Application Default Credentials; token profiles refresh through conf and
// write refreshed tokens back to disk.
func (s *ProfileStore) TokenSource(ctx context.Context, name string, conf *oauth2.Config) (oauth2.TokenSource, error) {
	if name == ADCProfile {
		creds, err := google.FindDefaultCredentials(ctx, DefaultOAuthScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to find application default credentials: %w", err)
		}
		return creds.TokenSource, nil
	}

	token, err := s.LoadToken(name)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		if token.Valid() {
			return oauth2.StaticTokenSource(token), nil
		}
		return nil, fmt.Errorf("token for profile %s expired and no OAuth client is configured: %w", name, ErrNoOAuthClient)
	}
	return &persistingTokenSource{
		base:    conf.TokenSource(ctx, token),
		store:   s,
		profile: name,
		last:    token,
	}, nil
}

// persistingTokenSource saves a token whenever the underlying source
// returned a new access token.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	store   *ProfileStore
	profile string
	last    *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token for profile %s: %w", p.profile, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || token.AccessToken != p.last.AccessToken {
		if err := p.store.SaveToken(p.profile, token); err != nil {
			slog.Warn("failed to persist refreshed token",
				logging.Profile(p.profile),
				slog.String("token", logging.SanitizeToken(token.AccessToken)),
				logging.Err(err))
		}
		p.last = token
	}
	return token, nil
}

// HTTPClient returns an HTTP client authenticated with ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// AuthenticationErrorMessage explains how to authenticate a profile.
func AuthenticationErrorMessage(profile string) string {
	if profile == ADCProfile {
		return "Application Default Credentials are not available. Run 'gcloud auth application-default login' " +
			"with the Chat and Contacts scopes, then retry."
	}
	return fmt.Sprintf("Google OAuth token not found for profile '%s'. To authorize access:\n\n"+
		"1. Run 'gwsa auth url --profile %s' (or call google_get_auth_url) and open the URL\n"+
		"2. Sign in and grant the requested permissions\n"+
		"3. Run 'gwsa auth save --profile %s CODE' (or call google_save_auth_code) with the code you received",
		profile, profile, profile)
}
