package zoom

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTokenURL is Zoom's OAuth token endpoint.
const DefaultTokenURL = "https://zoom.us/oauth/token"

// tokenExpiryBuffer refreshes the cached service token this long before it
// actually expires.
const tokenExpiryBuffer = 60 * time.Second

// ServiceAuth obtains access tokens through Zoom's server-to-server OAuth
// grant (account_credentials). Tokens are cached in memory for the life of
// the process and refreshed when near expiry.
type ServiceAuth struct {
	accountID    string
	clientID     string
	clientSecret string
	tokenURL     string
	scopes       []string
	httpClient   *http.Client
	logger       *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewServiceAuth creates a ServiceAuth for the given app credentials.
func NewServiceAuth(accountID, clientID, clientSecret string, logger *slog.Logger) *ServiceAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceAuth{
		accountID:    accountID,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     DefaultTokenURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
	}
}

// SetTokenURL overrides the OAuth endpoint, for tests.
func (a *ServiceAuth) SetTokenURL(u string) {
	a.tokenURL = u
}

func (a *ServiceAuth) Type() CredentialType {
	return CredentialService
}

// Scopes returns the scopes granted on the last token fetch. Empty before
// the first AccessToken call.
func (a *ServiceAuth) Scopes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scopes
}

// AccessToken returns a cached token or fetches a new one via the
// account_credentials grant.
func (a *ServiceAuth) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-tokenExpiryBuffer)) {
		return a.token, nil
	}
	return a.fetchLocked(ctx)
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (a *ServiceAuth) Invalidate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	return nil
}

func (a *ServiceAuth) fetchLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", a.accountID)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", WrapError(CodeAuthFailed, "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", NewError(CodeAuthFailed,
			fmt.Sprintf("token endpoint returned HTTP %d", resp.StatusCode),
			strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", WrapError(CodeAuthFailed, "invalid token response", err)
	}
	if payload.AccessToken == "" {
		return "", NewError(CodeAuthFailed, "token response missing access_token", "")
	}

	expiresIn := payload.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	a.token = payload.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	if payload.Scope != "" {
		a.scopes = strings.Fields(payload.Scope)
	}

	a.logger.Debug("service token obtained",
		slog.Int64("expires_in", expiresIn),
		slog.Int("scopes", len(a.scopes)),
	)
	return a.token, nil
}
