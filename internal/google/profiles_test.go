package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) *ProfileStore {
	t.Helper()
	t.Setenv("GWSA_OAUTH_CLIENT_ID", "")
	t.Setenv("GWSA_OAUTH_CLIENT_SECRET", "")
	store := NewProfileStore(filepath.Join(t.TempDir(), "config.yaml"))
	store.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return store
}

func TestValidateProfileName(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"adc", "adc", false},
		{"max length", "a234567890123456789012345678901x", false},
		{"too long", "a2345678901234567890123456789012x", true},
		{"empty", "", true},
		{"leading hyphen", "-work", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfileName(tt.profile)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProfileName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfileStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Active()
	assert.ErrorIs(t, err, ErrNoActiveProfile)

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, store.Create("work", token, ProfileMetadata{Email: "alice@example.com"}))
	assert.True(t, store.Exists("work"))
	assert.False(t, store.Exists("personal"))

	info, err := os.Stat(store.tokenPath("work"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.LoadToken("work")
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	require.NoError(t, store.SetActive("work"))
	active, err := store.Active()
	require.NoError(t, err)
	assert.Equal(t, "work", active)

	resolved, err := store.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "work", resolved)
	resolved, err = store.Resolve("adc")
	require.NoError(t, err)
	assert.Equal(t, "adc", resolved)

	profiles, err := store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, ADCProfile, profiles[0].Name)
	assert.True(t, profiles[0].ADC)
	assert.False(t, profiles[0].Active)
	assert.Equal(t, "work", profiles[1].Name)
	assert.True(t, profiles[1].Active)
	assert.Equal(t, "alice@example.com", profiles[1].Email)

	require.NoError(t, store.Delete("work"))
	assert.False(t, store.Exists("work"))
	_, err = store.Active()
	assert.ErrorIs(t, err, ErrNoActiveProfile)
}

func TestProfileStore_SetActiveKeepsSecretsOutOfConfig(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create("work", &oauth2.Token{AccessToken: "a"}, ProfileMetadata{}))
	t.Setenv("GWSA_OAUTH_CLIENT_SECRET", "secret-from-env")

	require.NoError(t, store.SetActive("work"))

	data, err := os.ReadFile(store.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "active_profile: work")
	assert.NotContains(t, string(data), "secret-from-env")
}

func TestProfileStore_Errors(t *testing.T) {
	store := newTestStore(t)

	assert.ErrorIs(t, store.SetActive("missing"), ErrProfileNotFound)
	assert.ErrorIs(t, store.SetActive("bad name"), ErrInvalidProfileName)
	assert.ErrorIs(t, store.Delete("missing"), ErrProfileNotFound)
	assert.ErrorIs(t, store.Delete(ADCProfile), ErrReservedProfile)
	assert.ErrorIs(t, store.Create(ADCProfile, &oauth2.Token{}, ProfileMetadata{}), ErrReservedProfile)

	_, err := store.LoadToken("missing")
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = store.LoadToken(ADCProfile)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.SetActive(ADCProfile))
	active, err := store.Active()
	require.NoError(t, err)
	assert.Equal(t, ADCProfile, active)
}

func TestProfileStore_MarkValidated(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create("work", &oauth2.Token{AccessToken: "a"}, ProfileMetadata{}))

	require.NoError(t, store.MarkValidated("work", "alice@example.com", []string{"openid"}))

	meta, err := store.Metadata("work")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", meta.Email)
	assert.Equal(t, []string{"openid"}, meta.Scopes)
	require.NotNil(t, meta.LastValidated)
	assert.True(t, meta.LastValidated.Equal(store.now()))
	assert.True(t, meta.Created.Equal(store.now()))

	assert.NoError(t, store.MarkValidated(ADCProfile, "x@example.com", nil))
}

func TestFileTokenProvider(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Create("work", &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, ProfileMetadata{}))

	provider := NewFileTokenProvider(store, nil)
	assert.True(t, provider.HasToken("work"))
	assert.False(t, provider.HasToken("other"))
	assert.True(t, provider.HasToken(ADCProfile))
}
