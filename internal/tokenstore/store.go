// Package tokenstore persists the user OAuth credential obtained through the
// broker login flow.
//
// The credential lives in a single JSON file with restrictive permissions.
// Concurrent CLI invocations do not coordinate access; the file is treated as
// advisory-locked at best.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Version of the on-disk token file format.
const Version = 1

// EnvTokensPath overrides the default token file location.
const EnvTokensPath = "ZOOMFETCH_TOKENS"

// expiryBuffer treats tokens as expired slightly before their real expiry so
// a refresh happens before an in-flight request can 401.
const expiryBuffer = 120 * time.Second

// Tokens is the persisted user credential.
type Tokens struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	IssuedAt     int64  `json:"issued_at"`
	Scope        string `json:"scope,omitempty"`
	AuthURL      string `json:"auth_url"`
}

// IsExpired reports whether the access token is expired or within the
// refresh buffer.
func (t *Tokens) IsExpired() bool {
	return time.Now().Unix() >= t.ExpiresAt-int64(expiryBuffer.Seconds())
}

type fileTokens struct {
	Version int `json:"version"`
	Tokens
}

// DefaultPath returns the token file location, honoring the
// ZOOMFETCH_TOKENS environment variable.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvTokensPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, "zoomfetch", "tokens.json"), nil
}

// Exists reports whether a credential file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads the credential file. A missing file returns (nil, nil).
func Load(path string) (*Tokens, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var ft fileTokens
	if err := json.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	if ft.AccessToken == "" || ft.RefreshToken == "" {
		return nil, fmt.Errorf("invalid token file %s: missing token fields", path)
	}
	if ft.TokenType == "" {
		ft.TokenType = "Bearer"
	}
	return &ft.Tokens, nil
}

// Save writes the credential file atomically with 0600 permissions.
func Save(path string, tokens *Tokens) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(fileTokens{Version: Version, Tokens: *tokens}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Clear removes the credential file. Missing files are not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
