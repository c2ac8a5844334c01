package broker

// SessionStatus tracks the lifecycle of one login attempt.
//
// Transitions: StatusPending -> StatusDone or StatusError via the callback.
// There is no transition back to pending; sessions end via TTL expiry or,
// for done sessions, via one successful poll consuming the token bundle.
type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusDone    SessionStatus = "done"
	StatusError   SessionStatus = "error"
)

// Session is one in-flight login attempt, keyed by its id which also rides
// the authorize URL as the OAuth state parameter.
type Session struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	CreatedAt int64         `json:"created_at"`

	// Error holds the stored exchange failure when Status is StatusError.
	// It stays readable until the session TTL expires so a poller can see
	// what went wrong more than once.
	Error *ExchangeError `json:"error,omitempty"`
}

// TokenBundle is the provider's raw token response, relayed to the poller
// exactly once and never persisted beyond the store TTL.
type TokenBundle struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// ExchangeError captures a failed provider token exchange, including the
// provider's HTTP status so the CLI can report it.
type ExchangeError struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// StartResponse is returned by POST /zoom/auth/start.
type StartResponse struct {
	AuthURL   string `json:"auth_url"`
	SessionID string `json:"session_id"`
}

// PendingResponse is returned by poll while the session has not completed.
type PendingResponse struct {
	Status string `json:"status"`
}

// RefreshRequest is the body of POST /zoom/token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse is the generic JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Body  string `json:"body,omitempty"`
}
