package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/broker"
	"github.com/teemow/zoomfetch/internal/tokenstore"
)

// loginTimeout bounds the whole poll loop; after it the user has to start
// over.
const loginTimeout = 10 * time.Minute

// defaultExpiresIn is assumed when the broker response omits expires_in.
const defaultExpiresIn = 3600

func newLoginCmd() *cobra.Command {
	var authURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Zoom through the auth broker",
		Long: `Authenticate with Zoom. Opens your browser for approval.

The command starts a login session with the auth broker, opens the Zoom
authorization page in your browser and polls the broker until the sign-in
completes. The resulting tokens are stored locally with restrictive file
permissions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			base := cfg.AuthURL
			if authURL != "" {
				base, err = normalizeAuthURL(authURL)
				if err != nil {
					return err
				}
			}
			if base == "" {
				return errors.New("no auth broker URL configured; set ZOOMFETCH_AUTH_URL or pass --auth-url")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runLogin(ctx, cmd, base)
		},
	}

	cmd.Flags().StringVar(&authURL, "auth-url", "", "Override the auth broker URL (must be https, or http://localhost for development)")

	return cmd
}

func runLogin(ctx context.Context, cmd *cobra.Command, base string) error {
	client := &http.Client{Timeout: 30 * time.Second}

	start, err := startLoginSession(ctx, client, base)
	if err != nil {
		return err
	}
	if !authPageAllowed(start.AuthURL) {
		return fmt.Errorf("authorization URL %q is not on the zoom.us domain; the auth broker may be compromised", start.AuthURL)
	}

	cmd.Println("Opening your browser to sign in to Zoom...")
	cmd.Printf("If the browser does not open, visit:\n%s\n", start.AuthURL)
	openBrowser(start.AuthURL)

	bundle, err := pollLoginSession(ctx, client, base, start.SessionID)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	expiresIn := bundle.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	tokens := &tokenstore.Tokens{
		TokenType:    bundle.TokenType,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresAt:    now + expiresIn,
		IssuedAt:     now,
		Scope:        bundle.Scope,
		AuthURL:      base,
	}

	path, err := tokenstore.DefaultPath()
	if err != nil {
		return err
	}
	if err := tokenstore.Save(path, tokens); err != nil {
		return err
	}

	cmd.Println("Signed in. Tokens saved.")
	return nil
}

func startLoginSession(ctx context.Context, client *http.Client, base string) (*broker.StartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/zoom/auth/start", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to start auth session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth broker returned HTTP %d on start", resp.StatusCode)
	}

	var start broker.StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&start); err != nil {
		return nil, fmt.Errorf("auth broker returned an invalid start response: %w", err)
	}
	if start.AuthURL == "" || start.SessionID == "" {
		return nil, errors.New("auth broker returned an incomplete start response")
	}
	return &start, nil
}

// pollLoginSession polls the broker until the session completes. The poll
// cadence backs off in steps: every second for the first 10 seconds, every
// 2 seconds up to 2 minutes, then every 5 seconds.
func pollLoginSession(ctx context.Context, client *http.Client, base, sessionID string) (*broker.TokenBundle, error) {
	started := time.Now()
	pollURL := base + "/zoom/auth/poll?id=" + url.QueryEscape(sessionID)

	for {
		elapsed := time.Since(started)
		if elapsed > loginTimeout {
			return nil, errors.New("login timed out; please run 'zoomfetch login' again")
		}

		bundle, done, err := pollOnce(ctx, client, pollURL)
		if err != nil {
			return nil, err
		}
		if done {
			return bundle, nil
		}

		timer := time.NewTimer(pollDelay(elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// pollOnce issues one poll request. It reports done=true with the bundle on
// success, done=false while the session is pending, and an error for
// terminal broker responses. Transport errors are treated as transient.
func pollOnce(ctx context.Context, client *http.Client, pollURL string) (*broker.TokenBundle, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var bundle broker.TokenBundle
		if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
			return nil, false, nil
		}
		if bundle.AccessToken == "" || bundle.RefreshToken == "" {
			// Still pending.
			return nil, false, nil
		}
		return &bundle, true, nil

	case http.StatusGone:
		return nil, false, errors.New("login session expired; please run 'zoomfetch login' again")

	case http.StatusInternalServerError:
		var brokerErr broker.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&brokerErr); err == nil && brokerErr.Body != "" {
			return nil, false, fmt.Errorf("authorization failed: %s", brokerErr.Body)
		}
		return nil, false, errors.New("authorization failed; please run 'zoomfetch login' again")

	default:
		// Transient broker hiccup; keep polling.
		return nil, false, nil
	}
}

// pollDelay returns the wait before the next poll given the elapsed time.
func pollDelay(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < 10*time.Second:
		return time.Second
	case elapsed < 2*time.Minute:
		return 2 * time.Second
	default:
		return 5 * time.Second
	}
}

// normalizeAuthURL validates an auth broker URL override. Plain http is only
// accepted for local development hosts.
func normalizeAuthURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://localhost") || strings.HasPrefix(raw, "http://127.0.0.1") {
		return strings.TrimRight(raw, "/"), nil
	}
	if !strings.HasPrefix(raw, "https://") {
		return "", errors.New("--auth-url must start with https:// (or http://localhost / http://127.0.0.1 for dev)")
	}
	return strings.TrimRight(raw, "/"), nil
}

// authPageAllowed checks that the authorization page the broker handed out
// is on Zoom's own domain.
func authPageAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "zoom.us" || strings.HasSuffix(host, ".zoom.us")
}

// openBrowser tries to open the URL in the default browser. Failures are
// ignored; the URL is already printed for manual use.
func openBrowser(u string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", u)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		c = exec.Command("xdg-open", u)
	}
	_ = c.Start()
}
