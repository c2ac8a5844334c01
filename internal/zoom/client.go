package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/retry"
)

// DefaultBaseURL is Zoom's REST API root.
const DefaultBaseURL = "https://api.zoom.us/v2"

// pageSize is the maximum listing page size the API accepts.
const pageSize = 300

// requestTimeout bounds each individual API attempt.
const requestTimeout = 30 * time.Second

// CredentialType distinguishes long-lived service credentials from
// interactive user tokens.
type CredentialType string

const (
	CredentialService CredentialType = "service"
	CredentialUser    CredentialType = "user"
)

// Auth supplies bearer tokens for API calls. Implementations own token
// caching and refresh.
type Auth interface {
	// AccessToken returns a currently valid bearer token.
	AccessToken(ctx context.Context) (string, error)
	// Invalidate drops any cached token after the API rejected it; the
	// next AccessToken call must fetch a fresh one.
	Invalidate(ctx context.Context) error
	// Type reports the credential kind for scope resolution.
	Type() CredentialType
	// Scopes returns the granted scope set, when known.
	Scopes() []string
}

// Client talks to the Zoom REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	auth       Auth
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy overrides the retry policy for API attempts.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a Client using the given token provider.
func NewClient(auth Auth, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		policy:     retry.Default(),
		auth:       auth,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Auth exposes the client's token provider, used by the download engine to
// authenticate download URLs.
func (c *Client) Auth() Auth {
	return c.auth
}

// EncodeUUID double URL-encodes a meeting UUID. UUIDs starting with "/" or
// containing "//" break single-encoded past_meetings paths.
func EncodeUUID(uuid string) string {
	return url.PathEscape(url.PathEscape(uuid))
}

// retryableStatus matches the statuses the API documents as transient.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// httpStatusError marks a response that should be retried or mapped after
// the retry loop ends.
type httpStatusError struct {
	status int
	body   []byte
	path   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("zoom api returned HTTP %d for %s", e.status, e.path)
}

// get performs an authenticated GET with retries and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	refreshed := false
	replayPending := false
	attemptFn := func() error {
		token, err := c.auth.AccessToken(ctx)
		if err != nil {
			return WrapError(CodeAuthFailed, "could not obtain access token", err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return WrapError(CodeNetworkError, "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			// One reactive refresh, then replay the request.
			refreshed = true
			replayPending = true
			if err := c.auth.Invalidate(ctx); err != nil {
				return WrapError(CodeAuthFailed, "token refresh failed", err)
			}
			return &httpStatusError{status: resp.StatusCode, path: path}
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			return &httpStatusError{status: resp.StatusCode, body: body, path: path}
		}

		return json.NewDecoder(resp.Body).Decode(out)
	}

	policy := c.policy
	policy.RetryIf = func(err error) bool {
		var se *httpStatusError
		if errors.As(err, &se) {
			if se.status == http.StatusUnauthorized && replayPending {
				replayPending = false
				return true
			}
			return retryableStatus(se.status)
		}
		return IsCode(err, CodeNetworkError)
	}
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("retrying api request",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			logging.Err(err),
		)
	}

	err := policy.Do(ctx, attemptFn)
	if err == nil {
		return nil
	}

	var se *httpStatusError
	if errors.As(err, &se) {
		return c.mapStatusError(path, se)
	}
	return err
}

// mapStatusError converts a final HTTP failure into the coded taxonomy.
func (c *Client) mapStatusError(path string, se *httpStatusError) error {
	var payload apiError
	_ = json.Unmarshal(se.body, &payload)
	msg := payload.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", se.status)
	}

	switch {
	case se.status == http.StatusUnauthorized:
		return NewError(CodeAuthFailed, "authentication failed",
			"check ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID and ZOOM_CLIENT_SECRET, or run login again")
	case se.status == http.StatusForbidden:
		return NewError(CodePermissionDenied, "permission denied",
			"check the OAuth scopes granted to your Zoom app")
	case se.status == http.StatusNotFound:
		if strings.Contains(path, "meeting") && !strings.Contains(path, "recording") {
			return NewError(CodeMeetingNotFound, "meeting not found", msg)
		}
		return NewError(CodeRecordingNotFound, "recording not found",
			"the meeting may not have been recorded: "+msg)
	case se.status == http.StatusTooManyRequests:
		return NewError(CodeRateLimited, "rate limit exceeded", msg)
	case se.status >= 500:
		return NewError(CodeNetworkError, "zoom api server error", msg)
	}
	return NewError(CodeNetworkError, fmt.Sprintf("zoom api error: %s", msg), "")
}

// GetMeetingRecordings returns every recording instance of a meeting,
// accepting either a numeric id or a UUID.
func (c *Client) GetMeetingRecordings(ctx context.Context, meetingID string) ([]RecordingInstance, error) {
	id := meetingID
	if !isNumeric(meetingID) {
		id = EncodeUUID(meetingID)
	}

	var resp meetingRecordingsResponse
	if err := c.get(ctx, "meetings/"+id+"/recordings", nil, &resp); err != nil {
		return nil, err
	}

	instances := resp.Instances()
	if len(instances) == 0 {
		return nil, NewError(CodeRecordingNotFound, "no recording files found",
			"the meeting may not have been recorded or the recording was deleted")
	}
	return instances, nil
}

// ListUserRecordings fetches one listing page for a user within the given
// date window.
func (c *Client) ListUserRecordings(ctx context.Context, userID, from, to, pageToken string) (*RecordingPage, error) {
	query := url.Values{}
	query.Set("page_size", fmt.Sprint(pageSize))
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}
	if pageToken != "" {
		query.Set("next_page_token", pageToken)
	}

	var page RecordingPage
	if err := c.get(ctx, "users/"+url.PathEscape(userID)+"/recordings", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAccountRecordings fetches one listing page across the whole account.
func (c *Client) ListAccountRecordings(ctx context.Context, accountID, from, to, pageToken string) (*RecordingPage, error) {
	query := url.Values{}
	query.Set("page_size", fmt.Sprint(pageSize))
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}
	if pageToken != "" {
		query.Set("next_page_token", pageToken)
	}

	var page RecordingPage
	if err := c.get(ctx, "accounts/"+url.PathEscape(accountID)+"/recordings", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPastMeeting returns details of a finished meeting by UUID.
func (c *Client) GetPastMeeting(ctx context.Context, uuid string) (*PastMeeting, error) {
	var pm PastMeeting
	if err := c.get(ctx, "past_meetings/"+EncodeUUID(uuid), nil, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

// ListAllParticipants returns every participant of a past meeting, following
// pagination.
func (c *Client) ListAllParticipants(ctx context.Context, uuid string) ([]Participant, error) {
	var all []Participant
	token := ""
	firstPage := true

	for {
		query := url.Values{}
		query.Set("page_size", fmt.Sprint(pageSize))
		if token != "" {
			query.Set("next_page_token", token)
		}

		var page participantsPage
		if err := c.get(ctx, "past_meetings/"+EncodeUUID(uuid)+"/participants", query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Participants...)

		// Known API bug: a full page_size request sometimes truncates to
		// 30 entries without a continuation token.
		if firstPage && len(page.Participants) == 30 && page.NextPageToken == "" {
			c.logger.Warn("possible pagination truncation, participant list may be incomplete",
				slog.Int("participants", len(page.Participants)))
		}
		firstPage = false

		token = page.NextPageToken
		if token == "" {
			return all, nil
		}
	}
}

// GetCurrentUser returns the authenticated user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
