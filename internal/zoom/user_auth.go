package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/tokenstore"
)

// UserAuth supplies access tokens from the persisted user credential,
// refreshing through the auth broker. Refreshes are single-flight within the
// process; the token file is the only cross-process coordination.
type UserAuth struct {
	tokensPath string
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	tokens *tokenstore.Tokens
}

// NewUserAuth wraps loaded tokens. tokensPath may be empty, in which case
// refreshed tokens are not persisted.
func NewUserAuth(tokens *tokenstore.Tokens, tokensPath string, logger *slog.Logger) *UserAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserAuth{
		tokensPath: tokensPath,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		tokens:     tokens,
	}
}

func (a *UserAuth) Type() CredentialType {
	return CredentialUser
}

// Scopes returns the granted scopes recorded at login.
func (a *UserAuth) Scopes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Fields(a.tokens.Scope)
}

// AccessToken returns the current token, refreshing proactively when it is
// inside the expiry buffer.
func (a *UserAuth) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tokens.IsExpired() {
		if err := a.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return a.tokens.AccessToken, nil
}

// Invalidate forces a refresh after the API rejected the current token.
func (a *UserAuth) Invalidate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

func (a *UserAuth) refreshLocked(ctx context.Context) error {
	refreshURL := strings.TrimRight(a.tokens.AuthURL, "/") + "/zoom/token/refresh"

	body, err := json.Marshal(map[string]string{"refresh_token": a.tokens.RefreshToken})
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, refreshURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return WrapError(CodeAuthFailed, "token refresh request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewError(CodeAuthFailed,
			fmt.Sprintf("token refresh returned HTTP %d", resp.StatusCode),
			strings.TrimSpace(string(respBody))+"; run login again if this persists")
	}

	var payload struct {
		TokenType    string `json:"token_type"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WrapError(CodeAuthFailed, "invalid refresh response", err)
	}
	if payload.AccessToken == "" {
		return NewError(CodeAuthFailed, "refresh response missing access_token", "")
	}

	now := time.Now().Unix()
	expiresIn := payload.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	refreshToken := payload.RefreshToken
	if refreshToken == "" {
		// The provider may rotate refresh tokens; keep the old one when it
		// does not.
		refreshToken = a.tokens.RefreshToken
	}
	tokenType := payload.TokenType
	if tokenType == "" {
		tokenType = a.tokens.TokenType
	}
	scope := payload.Scope
	if scope == "" {
		scope = a.tokens.Scope
	}

	a.tokens = &tokenstore.Tokens{
		TokenType:    tokenType,
		AccessToken:  payload.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now + expiresIn,
		IssuedAt:     now,
		Scope:        scope,
		AuthURL:      a.tokens.AuthURL,
	}

	if a.tokensPath != "" {
		if err := tokenstore.Save(a.tokensPath, a.tokens); err != nil {
			// Not fatal for this run; the user may just need to log in
			// again sooner.
			a.logger.Warn("could not persist refreshed tokens",
				logging.File(a.tokensPath),
				logging.Err(err),
			)
		}
	}

	a.logger.Debug("user token refreshed",
		slog.String("access_token", logging.SanitizeToken(a.tokens.AccessToken)),
	)
	return nil
}
