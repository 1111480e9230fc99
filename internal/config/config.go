// Package config loads and saves the gwsa YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/teemow/gwsa/internal/triage"
)

// Environment variables understood by the config package.
const (
	EnvConfigDir          = "GWSA_CONFIG_DIR"
	EnvConfigFile         = "GWSA_CONFIG_FILE"
	EnvOAuthClientID      = "GWSA_OAUTH_CLIENT_ID"
	EnvOAuthClientSecret  = "GWSA_OAUTH_CLIENT_SECRET"
	defaultConfigDirName  = "gworkspace-access"
	defaultConfigFileName = "config.yaml"
)

// Config is the content of config.yaml.
type Config struct {
	// ActiveProfile is the profile used when --profile is not given.
	ActiveProfile string       `yaml:"active_profile,omitempty"`
	OAuth         OAuthConfig  `yaml:"oauth,omitempty"`
	Triage        TriageConfig `yaml:"triage,omitempty"`
}

// OAuthConfig overrides the built-in OAuth client.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`
	RedirectURL  string `yaml:"redirect_url,omitempty"`
}

// TriageConfig holds user defaults for mention scans. Unset fields keep the
// built-in defaults.
type TriageConfig struct {
	SpaceLimit               *int          `yaml:"space_limit,omitempty"`
	ImplicitMentionThreshold *int          `yaml:"implicit_mention_threshold,omitempty"`
	Tiers                    []triage.Tier `yaml:"tiers,omitempty"`
	DiscoveryLimit           *int          `yaml:"discovery_limit,omitempty"`
	MessageScanLimit         *int          `yaml:"message_scan_limit,omitempty"`
	UnansweredOnly           *bool         `yaml:"unanswered_only,omitempty"`
}

// Apply overlays the configured values on opts.
func (t TriageConfig) Apply(opts triage.Options) triage.Options {
	if t.SpaceLimit != nil {
		opts.SpaceLimit = *t.SpaceLimit
	}
	if t.ImplicitMentionThreshold != nil {
		opts.ImplicitMentionThreshold = *t.ImplicitMentionThreshold
	}
	if len(t.Tiers) > 0 {
		opts.Tiers = append([]triage.Tier(nil), t.Tiers...)
	}
	if t.DiscoveryLimit != nil {
		opts.DiscoveryLimit = *t.DiscoveryLimit
	}
	if t.MessageScanLimit != nil {
		opts.MessageScanLimit = *t.MessageScanLimit
	}
	if t.UnansweredOnly != nil {
		opts.UnansweredOnly = *t.UnansweredOnly
	}
	return opts
}

// Dir returns the configuration directory.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", defaultConfigDirName)
	}
	return filepath.Join(home, ".config", defaultConfigDirName)
}

// Path returns the configuration file path.
func Path() string {
	if file := os.Getenv(EnvConfigFile); file != "" {
		return file
	}
	return filepath.Join(Dir(), defaultConfigFileName)
}

// ProfilesDir returns the directory holding token profiles, next to the
// configuration file.
func ProfilesDir(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "profiles")
}

// Load reads the configuration at path. A missing file yields an empty config.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Read loads the configuration file as stored, without environment
// overrides. A missing file yields an empty configuration. Use it when the
// result is written back with Save.
func Read(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if id := os.Getenv(EnvOAuthClientID); id != "" {
		c.OAuth.ClientID = id
	}
	if secret := os.Getenv(EnvOAuthClientSecret); secret != "" {
		c.OAuth.ClientSecret = secret
	}
}
