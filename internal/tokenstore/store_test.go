package tokenstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTokens() *Tokens {
	now := time.Now().Unix()
	return &Tokens{
		TokenType:    "Bearer",
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		ExpiresAt:    now + 3600,
		IssuedAt:     now,
		Scope:        "recording:read",
		AuthURL:      "https://auth.example.com",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tokens.json")
	want := sampleTokens()

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestSave_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, Save(path, sampleTokens()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_Missing(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"access_token":"a"}`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, Save(path, sampleTokens()))
	require.NoError(t, Clear(path))
	assert.False(t, Exists(path))

	// Clearing twice is fine.
	assert.NoError(t, Clear(path))
}

func TestIsExpired(t *testing.T) {
	now := time.Now().Unix()

	fresh := &Tokens{ExpiresAt: now + 3600}
	assert.False(t, fresh.IsExpired())

	// Within the 120s buffer counts as expired.
	closeTo := &Tokens{ExpiresAt: now + 60}
	assert.True(t, closeTo.IsExpired())

	stale := &Tokens{ExpiresAt: now - 10}
	assert.True(t, stale.IsExpired())
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvTokensPath, "/custom/tokens.json")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/tokens.json", p)
}
