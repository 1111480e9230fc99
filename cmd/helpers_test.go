package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/teemow/gwsa/internal/config"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/instrumentation"
	"github.com/teemow/gwsa/internal/server"
	"github.com/teemow/gwsa/internal/triage"
	"github.com/teemow/gwsa/internal/triage/triagetest"
)

// setupEnv points configuration and caches at a temporary directory and
// returns the profile store the commands will use.
func setupEnv(t *testing.T) *google.ProfileStore {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvOAuthClientID, "")
	t.Setenv(config.EnvOAuthClientSecret, "")
	t.Setenv("GWSA_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("LOG_LEVEL", "")
	return google.NewProfileStore(filepath.Join(dir, "config.yaml"))
}

func fakeClients(chat *triagetest.Chat, names map[string]string) *server.ProfileClients {
	return &server.ProfileClients{
		Chat: chat,
		Identity: &triagetest.Identity{Me: &triage.Identity{
			ResourceName: "people/111",
			DisplayName:  "Alice Example",
			Email:        "alice@example.com",
		}},
		Names: &triagetest.Names{Names: names},
	}
}

// useClients makes every profile resolve to clients.
func useClients(t *testing.T, clients *server.ProfileClients) {
	t.Helper()
	orig := clientFactory
	clientFactory = func(*app, *instrumentation.Metrics) server.ClientFactory {
		return func(context.Context, string) (*server.ProfileClients, error) {
			return clients, nil
		}
	}
	t.Cleanup(func() { clientFactory = orig })
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
