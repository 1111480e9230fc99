package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/gwsa/internal/logging"
)

// DefaultTTL is how long a cached entry stays valid.
const DefaultTTL = 24 * time.Hour

// Cache file names inside a profile's cache directory.
const (
	ProfilesFile = "profiles.json"
	MembersFile  = "members.json"
)

type entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

// Store is a concurrency-safe TTL cache. When created with a path every
// write is persisted to that file.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for load and save problems.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemory returns a Store that is never written to disk.
func NewMemory(opts ...Option) *Store {
	return newStore("", opts...)
}

// Open returns a Store persisted at path. A missing or unreadable file
// yields an empty cache.
func Open(path string, opts ...Option) *Store {
	s := newStore(path, opts...)
	s.load()
	return s
}

func newStore(path string, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		path:    path,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read cache file, starting empty", slog.String("path", s.path), logging.Err(err))
		}
		return
	}
	entries := make(map[string]entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("failed to decode cache file, starting empty", slog.String("path", s.path), logging.Err(err))
		return
	}
	s.entries = entries
}

func (s *Store) expired(e entry) bool {
	return s.now().Sub(e.CachedAt) > s.ttl
}

// Get decodes the entry for key into v. It reports false on a miss, an
// expired entry or an entry that does not decode into v.
func (s *Store) Get(key string, v any) bool {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return false
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		s.logger.Debug("ignoring undecodable cache entry", slog.String("key", key), logging.Err(err))
		return false
	}
	return true
}

// Set stores v under key and persists the cache.
func (s *Store) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{Data: data, CachedAt: s.now()}
	return s.saveLocked()
}

// Delete removes key and persists the cache.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return s.saveLocked()
}

// Len returns the number of entries, including expired ones not yet pruned.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// saveLocked prunes expired entries and writes the file atomically.
func (s *Store) saveLocked() error {
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
		}
	}
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// GetOrLoad returns the cached value for key or calls load once, even when
// several goroutines ask for the same key concurrently. Successful results
// are cached; errors are not.
func GetOrLoad[T any](ctx context.Context, s *Store, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.Get(key, &cached) {
		return cached, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var again T
		if s.Get(key, &again) {
			return again, nil
		}
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Set(key, loaded); err != nil {
			s.logger.Warn("failed to persist cache entry", slog.String("key", key), logging.Err(err))
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// DefaultDir returns the cache directory of a profile:
// $GWSA_CACHE_DIR/<profile> or <user cache dir>/gwsa/<profile>.
func DefaultDir(profile string) (string, error) {
	if dir := os.Getenv("GWSA_CACHE_DIR"); dir != "" {
		return filepath.Join(dir, profile), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(base, "gwsa", profile), nil
}
