// Package google manages Google credentials for gwsa.
//
// Credentials are organised in profiles. A profile is a directory below the
// configuration directory holding an OAuth token (user_token.json) and
// metadata (profile.yaml); the active profile is recorded in config.yaml.
// The built-in "adc" profile uses Application Default Credentials instead of
// a stored token.
//
// The TokenProvider interface lets API adapters obtain a token source for a
// profile without knowing where the credentials are stored.
package google
