package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/zoomfetch/internal/instrumentation"
	"github.com/teemow/zoomfetch/internal/logging"
)

// Defaults for the relay service.
const (
	DefaultAuthorizeURL = "https://zoom.us/oauth/authorize"
	DefaultTokenURL     = "https://zoom.us/oauth/token"
	DefaultSessionTTL   = 10 * time.Minute

	// Refresh tokens outside these bounds are rejected before any
	// provider call is made.
	minRefreshTokenLen = 16
	maxRefreshTokenLen = 4096
)

// Config holds the provider registration the broker exchanges codes with.
// The client secret never leaves this process.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// AuthorizeURL and TokenURL default to Zoom's endpoints; tests point
	// them at local servers.
	AuthorizeURL string
	TokenURL     string

	SessionTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = DefaultSessionTTL
	}
}

// Validate checks that the provider registration is complete.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("broker requires a client id and client secret")
	}
	if c.RedirectURL == "" {
		return errors.New("broker requires a redirect URL")
	}
	return nil
}

// Handler serves the broker HTTP surface. It is stateless apart from the
// injected store.
type Handler struct {
	cfg     Config
	store   Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewHandler creates a Handler with the given store.
func NewHandler(cfg Config, store Store, logger *slog.Logger) (*Handler, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: &instrumentation.Metrics{}, // no-op until SetMetrics
	}, nil
}

// SetMetrics attaches a metrics recorder. Without one the handler records
// nothing.
func (h *Handler) SetMetrics(m *instrumentation.Metrics) {
	if m != nil {
		h.metrics = m
	}
}

// Routes registers the broker endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /zoom/auth/start", h.HandleStart)
	mux.HandleFunc("GET /callback", h.HandleCallback)
	mux.HandleFunc("GET /zoom/auth/poll", h.HandlePoll)
	mux.HandleFunc("POST /zoom/token/refresh", h.HandleRefresh)
}

func sessionKey(id string) string { return "session:" + id }
func bundleKey(id string) string  { return "bundle:" + id }

func (h *Handler) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		RedirectURL:  h.cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   h.cfg.AuthorizeURL,
			TokenURL:  h.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// HandleStart creates a pending session and returns the authorize URL with
// the session id embedded as the OAuth state parameter.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	session := &Session{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: time.Now().Unix(),
	}
	h.store.Put(sessionKey(id), session, h.cfg.SessionTTL)

	h.logger.Info("auth session started", logging.Session(id))

	writeJSON(w, http.StatusOK, StartResponse{
		AuthURL:   h.oauthConfig().AuthCodeURL(id),
		SessionID: id,
	})
}

// HandleCallback is the provider redirect target. It correlates the state
// parameter to a pending session, exchanges the code server-side and stores
// the outcome. The browser only ever sees a confirmation or error page.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeHTML(w, http.StatusBadRequest, errorPage("Missing code or state parameter."))
		return
	}

	v, ok := h.store.Get(sessionKey(state))
	if !ok {
		writeHTML(w, http.StatusBadRequest, errorPage("Unknown or expired login session. Please run the login command again."))
		return
	}
	session, ok := v.(*Session)
	if !ok || session.Status != StatusPending {
		writeHTML(w, http.StatusBadRequest, errorPage("This login session was already completed. Please run the login command again."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	token, err := h.oauthConfig().Exchange(ctx, code)
	if err != nil {
		exchangeErr := toExchangeError(err)
		// Stored sessions are read concurrently by poll handlers, so a
		// state change stores a fresh copy instead of mutating the
		// shared one.
		failed := *session
		failed.Status = StatusError
		failed.Error = exchangeErr
		h.store.Put(sessionKey(state), &failed, h.cfg.SessionTTL)
		h.metrics.RecordExchange(ctx, instrumentation.ResultFailure)

		h.logger.Warn("token exchange failed",
			logging.Session(state),
			slog.Int("provider_status", exchangeErr.Status),
		)
		writeHTML(w, http.StatusInternalServerError, errorPage("Sign-in failed: the authorization code could not be exchanged. Please try again."))
		return
	}

	done := *session
	done.Status = StatusDone
	h.store.Put(bundleKey(state), bundleFromToken(token), h.cfg.SessionTTL)
	h.store.Put(sessionKey(state), &done, h.cfg.SessionTTL)
	h.metrics.RecordExchange(ctx, instrumentation.ResultSuccess)

	h.logger.Info("auth session completed", logging.Session(state))
	writeHTML(w, http.StatusOK, successPage)
}

// HandlePoll delivers the session outcome to the CLI. A done session's token
// bundle is consumed by the first successful poll; later polls see pending
// until the session record itself expires.
func (h *Handler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing id parameter"})
		return
	}

	v, ok := h.store.Get(sessionKey(id))
	if !ok {
		writeJSON(w, http.StatusGone, ErrorResponse{Error: "session expired or unknown"})
		return
	}
	session, ok := v.(*Session)
	if !ok {
		writeJSON(w, http.StatusGone, ErrorResponse{Error: "session expired or unknown"})
		return
	}

	switch session.Status {
	case StatusPending:
		writeJSON(w, http.StatusOK, PendingResponse{Status: "pending"})

	case StatusError:
		// The stored error stays readable until TTL so repeated polls
		// can report it.
		resp := ErrorResponse{Error: "token exchange failed"}
		if session.Error != nil {
			resp.Body = fmt.Sprintf("provider returned HTTP %d: %s", session.Error.Status, session.Error.Body)
		}
		writeJSON(w, http.StatusInternalServerError, resp)

	case StatusDone:
		bundle, ok := h.store.Take(bundleKey(id))
		if !ok {
			// Already consumed by an earlier poll; first read won.
			writeJSON(w, http.StatusOK, PendingResponse{Status: "pending"})
			return
		}
		h.logger.Info("token bundle delivered", logging.Session(id))
		h.metrics.RecordTokenDelivered(r.Context())
		writeJSON(w, http.StatusOK, bundle)

	default:
		writeJSON(w, http.StatusGone, ErrorResponse{Error: "session in unknown state"})
	}
}

// HandleRefresh is a stateless refresh relay: it validates the token shape,
// exchanges it with the provider and returns the provider's response, success
// or error, verbatim.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.RefreshToken) < minRefreshTokenLen || len(req.RefreshToken) > maxRefreshTokenLen {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing or implausible refresh_token"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	src := h.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: req.RefreshToken})
	token, err := src.Token()
	if err != nil {
		exchangeErr := toExchangeError(err)
		result := instrumentation.ResultFailure
		if exchangeErr.Status == http.StatusBadRequest || exchangeErr.Status == http.StatusUnauthorized {
			result = instrumentation.ResultExpired
		}
		h.metrics.RecordTokenRefresh(ctx, result)
		h.logger.Warn("refresh relay failed",
			slog.Int("provider_status", exchangeErr.Status),
			slog.String("refresh_token", logging.SanitizeToken(req.RefreshToken)),
		)
		status := exchangeErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, ErrorResponse{Error: "refresh failed", Body: exchangeErr.Body})
		return
	}

	h.metrics.RecordTokenRefresh(ctx, instrumentation.ResultSuccess)
	writeJSON(w, http.StatusOK, bundleFromToken(token))
}

// bundleFromToken converts the oauth2 token into the wire bundle the CLI
// persists.
func bundleFromToken(token *oauth2.Token) *TokenBundle {
	bundle := &TokenBundle{
		TokenType:    token.TokenType,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if bundle.TokenType == "" {
		bundle.TokenType = "Bearer"
	}
	if !token.Expiry.IsZero() {
		bundle.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	if scope, ok := token.Extra("scope").(string); ok {
		bundle.Scope = scope
	}
	return bundle
}

// toExchangeError extracts the provider HTTP status and body from an oauth2
// failure. Transport-level failures have status 0.
func toExchangeError(err error) *ExchangeError {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return &ExchangeError{Status: status, Body: string(rerr.Body)}
	}
	return &ExchangeError{Body: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Signed in</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>&#10003; Signed in</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

func errorPage(msg string) string {
	return `<!DOCTYPE html>
<html>
<head><title>Sign-in failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Sign-in failed</h1>
<p>` + msg + `</p>
</body>
</html>`
}
