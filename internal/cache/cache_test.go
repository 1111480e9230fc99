package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func TestStore_SetGet(t *testing.T) {
	s := NewMemory()

	var got string
	assert.False(t, s.Get("users/1", &got))

	require.NoError(t, s.Set("users/1", "Bob Builder"))
	require.True(t, s.Get("users/1", &got))
	assert.Equal(t, "Bob Builder", got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete("users/1"))
	assert.False(t, s.Get("users/1", &got))
}

func TestStore_TypeMismatchIsMiss(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set("k", []string{"a"}))

	var n int
	assert.False(t, s.Get("k", &n))
}

func TestStore_Expiry(t *testing.T) {
	c := newClock()
	s := NewMemory(WithClock(c.Now), WithTTL(time.Hour))
	require.NoError(t, s.Set("users/1", "Bob"))

	var got string
	c.Advance(59 * time.Minute)
	assert.True(t, s.Get("users/1", &got))

	c.Advance(2 * time.Minute)
	assert.False(t, s.Get("users/1", &got))

	require.NoError(t, s.Set("users/2", "Carol"))
	assert.Equal(t, 1, s.Len(), "expired entries are pruned on write")
}

func TestStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile", ProfilesFile)

	s := Open(path)
	require.NoError(t, s.Set("users/1", map[string]string{"displayName": "Bob"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := Open(path)
	var got map[string]string
	require.True(t, reopened.Get("users/1", &got))
	assert.Equal(t, "Bob", got["displayName"])
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), MembersFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := Open(path)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Set("spaces/A", []string{"users/1"}))
	assert.Equal(t, 1, Open(path).Len())
}

func TestGetOrLoad(t *testing.T) {
	s := NewMemory()
	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		return "Bob", nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(context.Background(), s, "users/1", load)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrLoad_ErrorsAreNotCached(t *testing.T) {
	s := NewMemory()
	boom := errors.New("boom")

	_, err := GetOrLoad(context.Background(), s, "users/1", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())

	got, err := GetOrLoad(context.Background(), s, "users/1", func(context.Context) (string, error) {
		return "Bob", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", got)
}

func TestGetOrLoad_CollapsesConcurrentLoads(t *testing.T) {
	s := NewMemory()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	load := func(context.Context) (string, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return "Bob", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrLoad(context.Background(), s, "users/1", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "Bob", r)
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("GWSA_CACHE_DIR", "/tmp/gwsa-cache")

	dir, err := DefaultDir("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/gwsa-cache", "work"), dir)
}
