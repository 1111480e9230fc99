package people_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teemow/gwsa/internal/cache"
	"github.com/teemow/gwsa/internal/people"
	"github.com/teemow/gwsa/internal/triage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.Handler, store *cache.Store) *people.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := people.NewClient(context.Background(), srv.Client(),
		people.WithEndpoint(srv.URL+"/"),
		people.WithCache(store),
		people.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	return client
}

func TestPersonResourceName(t *testing.T) {
	tests := map[string]string{
		"users/123":  "people/123",
		"people/123": "people/123",
		"123":        "people/123",
	}
	for in, want := range tests {
		assert.Equal(t, want, people.PersonResourceName(in), in)
	}
}

func TestGetMe(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/people/me", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "names,emailAddresses", r.URL.Query().Get("personFields"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resourceName":   "people/111",
			"names":          []map[string]any{{"displayName": "Alice Example"}},
			"emailAddresses": []map[string]any{{"value": "alice@example.com"}},
		})
	})

	store := cache.Open(filepath.Join(t.TempDir(), cache.ProfilesFile))
	client := newTestClient(t, mux, store)

	for range 2 {
		me, err := client.GetMe(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &triage.Identity{
			ResourceName: "people/111",
			DisplayName:  "Alice Example",
			Email:        "alice@example.com",
		}, me)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetMe_Error(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/people/me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})

	client := newTestClient(t, mux, cache.NewMemory())
	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get own profile")
}

func TestResolvePersonName(t *testing.T) {
	var calls sync.Map
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/people/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		n, _ := calls.LoadOrStore(id, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)
		switch id {
		case "222":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"resourceName": "people/222",
				"names":        []map[string]any{{"displayName": "Bob Builder"}},
			})
		case "333":
			_ = json.NewEncoder(w).Encode(map[string]any{"resourceName": "people/333"})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	client := newTestClient(t, mux, cache.NewMemory())
	ctx := context.Background()

	count := func(id string) int32 {
		n, ok := calls.Load(id)
		if !ok {
			return 0
		}
		return n.(*atomic.Int32).Load()
	}

	t.Run("resolved and cached", func(t *testing.T) {
		assert.Equal(t, "Bob Builder", client.ResolvePersonName(ctx, "users/222"))
		assert.Equal(t, "Bob Builder", client.ResolvePersonName(ctx, "users/222"))
		assert.Equal(t, int32(1), count("222"))
	})

	t.Run("nameless person cached as unknown", func(t *testing.T) {
		assert.Equal(t, people.UnknownName, client.ResolvePersonName(ctx, "users/333"))
		assert.Equal(t, people.UnknownName, client.ResolvePersonName(ctx, "users/333"))
		assert.Equal(t, int32(1), count("333"))
	})

	t.Run("failure not cached", func(t *testing.T) {
		assert.Equal(t, people.UnknownName, client.ResolvePersonName(ctx, "users/404"))
		assert.Equal(t, people.UnknownName, client.ResolvePersonName(ctx, "users/404"))
		assert.Equal(t, int32(2), count("404"))
	})

	t.Run("empty id", func(t *testing.T) {
		assert.Equal(t, people.UnknownName, client.ResolvePersonName(ctx, ""))
	})
}

func TestResolvePersonName_ConcurrentLookupsCollapse(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/people/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{
			"names": []map[string]any{{"displayName": "Carol"}},
		})
	})

	client := newTestClient(t, mux, cache.NewMemory())

	var wg sync.WaitGroup
	names := make([]string, 8)
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names[i] = client.ResolvePersonName(context.Background(), "users/444")
		}()
	}
	for calls.Load() == 0 {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	for _, n := range names {
		assert.Equal(t, "Carol", n)
	}
	assert.LessOrEqual(t, calls.Load(), int32(2))
}
