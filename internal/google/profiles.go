package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/teemow/gwsa/internal/config"
)

// ADCProfile is the built-in profile backed by Application Default Credentials.
const ADCProfile = "adc"

const (
	tokenFileName    = "user_token.json"
	metadataFileName = "profile.yaml"
)

var profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,31}$`)

// Profile errors.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidProfileName = errors.New("invalid profile name")
	ErrReservedProfile    = errors.New("profile name is reserved")
	ErrNoActiveProfile    = errors.New("no active profile configured")
	ErrNoToken            = errors.New("no OAuth token stored for profile")
)

// ProfileMetadata is stored next to the token in profile.yaml.
type ProfileMetadata struct {
	Email         string     `yaml:"email,omitempty" json:"email,omitempty"`
	Scopes        []string   `yaml:"validated_scopes,omitempty" json:"scopes,omitempty"`
	Created       time.Time  `yaml:"created" json:"created"`
	LastValidated *time.Time `yaml:"last_validated,omitempty" json:"last_validated,omitempty"`
}

// Profile describes one credential profile.
type Profile struct {
	Name          string     `json:"name"`
	ADC           bool       `json:"is_adc"`
	Active        bool       `json:"is_active"`
	Email         string     `json:"email,omitempty"`
	Scopes        []string   `json:"scopes,omitempty"`
	LastValidated *time.Time `json:"last_validated,omitempty"`
}

// ValidateProfileName checks a profile name against the allowed pattern.
func ValidateProfileName(name string) error {
	if name == ADCProfile {
		return nil
	}
	if !profileNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (use 1-32 letters, digits, '-' or '_', starting with a letter or digit)", ErrInvalidProfileName, name)
	}
	return nil
}

// ProfileStore manages token profiles below the configuration directory:
//
//	<config dir>/config.yaml                    active_profile
//	<config dir>/profiles/<name>/user_token.json
//	<config dir>/profiles/<name>/profile.yaml
type ProfileStore struct {
	mu         sync.Mutex
	configPath string
	dir        string
	now        func() time.Time
}

// NewProfileStore returns a store rooted next to configPath.
func NewProfileStore(configPath string) *ProfileStore {
	return &ProfileStore{
		configPath: configPath,
		dir:        config.ProfilesDir(configPath),
		now:        time.Now,
	}
}

// DefaultProfileStore returns a store for the default configuration file.
func DefaultProfileStore() *ProfileStore {
	return NewProfileStore(config.Path())
}

// ConfigPath returns the configuration file the store reads active_profile from.
func (s *ProfileStore) ConfigPath() string {
	return s.configPath
}

func (s *ProfileStore) profileDir(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *ProfileStore) tokenPath(name string) string {
	return filepath.Join(s.profileDir(name), tokenFileName)
}

func (s *ProfileStore) metadataPath(name string) string {
	return filepath.Join(s.profileDir(name), metadataFileName)
}

// Exists reports whether name is the ADC profile or a profile with a token.
func (s *ProfileStore) Exists(name string) bool {
	if name == ADCProfile {
		return true
	}
	if ValidateProfileName(name) != nil {
		return false
	}
	_, err := os.Stat(s.tokenPath(name))
	return err == nil
}

// Active returns the active profile name from the configuration file.
func (s *ProfileStore) Active() (string, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return "", err
	}
	if cfg.ActiveProfile == "" {
		return "", ErrNoActiveProfile
	}
	return cfg.ActiveProfile, nil
}

// Resolve returns name when set and the active profile otherwise.
func (s *ProfileStore) Resolve(name string) (string, error) {
	if name != "" {
		if err := ValidateProfileName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	return s.Active()
}

// SetActive makes name the active profile.
func (s *ProfileStore) SetActive(name string) error {
	if err := ValidateProfileName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return s.updateConfig(func(cfg *config.Config) { cfg.ActiveProfile = name })
}

func (s *ProfileStore) updateConfig(mutate func(*config.Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := config.Read(s.configPath)
	if err != nil {
		return err
	}
	mutate(cfg)
	return cfg.Save(s.configPath)
}

// List returns the ADC profile followed by all token profiles sorted by name.
func (s *ProfileStore) List() ([]Profile, error) {
	active, err := s.Active()
	if err != nil && !errors.Is(err, ErrNoActiveProfile) {
		return nil, err
	}

	profiles := []Profile{{Name: ADCProfile, ADC: true, Active: active == ADCProfile}}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return profiles, nil
		}
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ADCProfile || ValidateProfileName(e.Name()) != nil {
			continue
		}
		meta, err := s.Metadata(e.Name())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, Profile{
			Name:          e.Name(),
			Active:        active == e.Name(),
			Email:         meta.Email,
			Scopes:        meta.Scopes,
			LastValidated: meta.LastValidated,
		})
	}
	return profiles, nil
}

// Create stores a new token profile. Existing profiles are overwritten.
func (s *ProfileStore) Create(name string, token *oauth2.Token, meta ProfileMetadata) error {
	if name == ADCProfile {
		return fmt.Errorf("%w: %s", ErrReservedProfile, name)
	}
	if err := ValidateProfileName(name); err != nil {
		return err
	}
	if err := s.SaveToken(name, token); err != nil {
		return err
	}
	if meta.Created.IsZero() {
		meta.Created = s.now()
	}
	return s.saveMetadata(name, meta)
}

// Delete removes a token profile and clears it as active profile.
func (s *ProfileStore) Delete(name string) error {
	if name == ADCProfile {
		return fmt.Errorf("%w: %s", ErrReservedProfile, name)
	}
	if err := ValidateProfileName(name); err != nil {
		return err
	}
	dir := s.profileDir(name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}

	active, err := s.Active()
	if err == nil && active == name {
		return s.updateConfig(func(cfg *config.Config) { cfg.ActiveProfile = "" })
	}
	return nil
}

// LoadToken reads the stored OAuth token of a profile.
func (s *ProfileStore) LoadToken(name string) (*oauth2.Token, error) {
	if err := ValidateProfileName(name); err != nil {
		return nil, err
	}
	if name == ADCProfile {
		return nil, fmt.Errorf("%w: %s uses application default credentials", ErrNoToken, name)
	}
	data, err := os.ReadFile(s.tokenPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, name)
		}
		return nil, fmt.Errorf("failed to read token for profile %s: %w", name, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token for profile %s: %w", name, err)
	}
	return &token, nil
}

// SaveToken writes the OAuth token of a profile with owner-only permissions.
func (s *ProfileStore) SaveToken(name string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: %s", ErrNoToken, name)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(s.profileDir(name), 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(s.tokenPath(name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Metadata returns the stored metadata of a profile. Missing metadata is
// returned as the zero value.
func (s *ProfileStore) Metadata(name string) (ProfileMetadata, error) {
	var meta ProfileMetadata
	if name == ADCProfile {
		return meta, nil
	}
	data, err := os.ReadFile(s.metadataPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("failed to read metadata for profile %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse metadata for profile %s: %w", name, err)
	}
	return meta, nil
}

// MarkValidated records the email and scopes confirmed for a profile.
func (s *ProfileStore) MarkValidated(name, email string, scopes []string) error {
	if name == ADCProfile {
		return nil
	}
	meta, err := s.Metadata(name)
	if err != nil {
		return err
	}
	now := s.now()
	if email != "" {
		meta.Email = email
	}
	if scopes != nil {
		meta.Scopes = scopes
	}
	meta.LastValidated = &now
	if meta.Created.IsZero() {
		meta.Created = now
	}
	return s.saveMetadata(name, meta)
}

func (s *ProfileStore) saveMetadata(name string, meta ProfileMetadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode profile metadata: %w", err)
	}
	if err := os.MkdirAll(s.profileDir(name), 0o700); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile metadata: %w", err)
	}
	return nil
}
