package server

import (
	"context"
	"fmt"

	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/logging"
)

// AuthURL returns the consent URL for profile.
func (sc *ServerContext) AuthURL(profile string) (string, error) {
	if sc.oauth == nil {
		return "", google.ErrNoOAuthClient
	}
	if err := google.ValidateProfileName(profile); err != nil {
		return "", err
	}
	return google.AuthURL(sc.oauth, profile), nil
}

// SaveAuthCode exchanges code for a token, stores it as profile and
// validates the new credentials. It returns the profile's email.
func (sc *ServerContext) SaveAuthCode(ctx context.Context, profile, code string) (string, error) {
	if sc.oauth == nil {
		return "", google.ErrNoOAuthClient
	}
	if sc.profiles == nil {
		return "", fmt.Errorf("no profile store configured")
	}
	if err := google.ValidateProfileName(profile); err != nil {
		return "", err
	}

	token, err := google.ExchangeCode(ctx, sc.oauth, code)
	if err != nil {
		return "", err
	}
	if err := sc.profiles.Create(profile, token, google.ProfileMetadata{Scopes: sc.oauth.Scopes}); err != nil {
		return "", fmt.Errorf("failed to save profile %s: %w", profile, err)
	}
	sc.InvalidateProfile(profile)

	return sc.ValidateProfile(ctx, profile)
}

// ValidateProfile calls the People API with profile's credentials and
// records the confirmed email. It returns that email.
func (sc *ServerContext) ValidateProfile(ctx context.Context, profile string) (string, error) {
	clients, err := sc.ClientsForProfile(profile)
	if err != nil {
		return "", err
	}
	me, err := clients.Identity.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to validate profile %s: %w", profile, err)
	}

	var scopes []string
	if sc.oauth != nil && profile != google.ADCProfile {
		scopes = sc.oauth.Scopes
	}
	if sc.profiles != nil {
		if err := sc.profiles.MarkValidated(profile, me.Email, scopes); err != nil {
			sc.logger.Warn("failed to record profile validation",
				logging.Profile(profile),
				logging.Err(err))
		}
	}
	sc.logger.Info("profile validated",
		logging.Profile(profile),
		logging.UserHash(me.Email))
	return me.Email, nil
}
