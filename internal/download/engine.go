// Package download turns recording file descriptors into verified local
// files. URLs are validated against a fixed host allow-list before any
// network call, bodies stream to a temporary file, and only size-verified
// files are renamed into place.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teemow/zoomfetch/internal/logging"
	"github.com/teemow/zoomfetch/internal/retry"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// attemptTimeout bounds each download attempt.
const attemptTimeout = 10 * time.Minute

// allowedHosts are the only domains downloads may come from. Suffix entries
// (leading dot) match subdomains.
var allowedHosts = []string{"zoom.us", ".zoom.us", "zoom.com", ".zoom.com"}

// HostAllowed reports whether a download URL points at the provider's own
// domains over https.
func HostAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		if strings.HasPrefix(allowed, ".") {
			if strings.HasSuffix(host, allowed) {
				return true
			}
		} else if host == allowed {
			return true
		}
	}
	return false
}

// TokenFunc supplies the access token appended to download URLs.
type TokenFunc func(ctx context.Context) (string, error)

// Engine downloads recording files into an output directory.
type Engine struct {
	outputDir   string
	token       TokenFunc
	httpClient  *http.Client
	policy      retry.Policy
	logger      *slog.Logger
	overwrite   bool
	hostAllowed func(string) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *Engine) { e.httpClient = hc }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithOverwrite disables the skip-if-exists check.
func WithOverwrite(overwrite bool) Option {
	return func(e *Engine) { e.overwrite = overwrite }
}

// WithHostCheck overrides the URL allow-list, for tests.
func WithHostCheck(fn func(string) bool) Option {
	return func(e *Engine) { e.hostAllowed = fn }
}

// NewEngine creates an Engine writing into outputDir, creating it when
// missing.
func NewEngine(outputDir string, token TokenFunc, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	e := &Engine{
		outputDir:   outputDir,
		token:       token,
		httpClient:  &http.Client{Timeout: attemptTimeout},
		policy:      retry.Default(),
		logger:      logger,
		hostAllowed: HostAllowed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ArtifactName maps a recording file to its deterministic output name.
func ArtifactName(base string, f zoom.RecordingFile) string {
	ext := strings.ToLower(f.FileExtension)
	if ext == "" {
		ext = "bin"
	}
	switch f.FileType {
	case zoom.FileTypeAudioOnly, zoom.FileTypeMP4, zoom.FileTypeM4A,
		"shared_screen_with_speaker_view", "shared_screen_with_gallery_view",
		"active_speaker", "gallery_view":
		return fmt.Sprintf("%s.%s", base, ext)
	case zoom.FileTypeTranscript, zoom.FileTypeCC:
		return fmt.Sprintf("%s_transcript.%s", base, ext)
	case zoom.FileTypeChat:
		return fmt.Sprintf("%s_chat.%s", base, ext)
	case zoom.FileTypeTimeline:
		return fmt.Sprintf("%s_timeline.%s", base, ext)
	default:
		return fmt.Sprintf("%s_%s.%s", base, strings.ToLower(f.FileType), ext)
	}
}

// Download fetches one recording file and returns the final path. The target
// is only created once the received byte count matches the declared size;
// a mismatch leaves the target untouched and removes the temporary file.
func (e *Engine) Download(ctx context.Context, f zoom.RecordingFile, base string) (string, error) {
	if f.DownloadURL == "" {
		return "", zoom.NewError(zoom.CodeDownloadFailed, "file has no download URL", "")
	}
	if !e.hostAllowed(f.DownloadURL) {
		return "", zoom.NewError(zoom.CodeHostNotAllowed,
			"download URL rejected", "host is not a provider domain or scheme is not https")
	}

	name := ArtifactName(base, f)
	target := filepath.Join(e.outputDir, name)

	if !e.overwrite && f.FileSize > 0 {
		if info, err := os.Stat(target); err == nil && info.Size() == f.FileSize {
			e.logger.Info("file already exists, skipping", logging.File(name))
			return target, nil
		}
	}

	token, err := e.token(ctx)
	if err != nil {
		return "", zoom.WrapError(zoom.CodeAuthFailed, "could not obtain download token", err)
	}

	// The token rides as a query parameter rather than an Authorization
	// header; password-protected recordings reject header auth.
	sep := "?"
	if strings.Contains(f.DownloadURL, "?") {
		sep = "&"
	}
	authedURL := f.DownloadURL + sep + "access_token=" + url.QueryEscape(token)

	policy := e.policy
	policy.RetryIf = func(err error) bool {
		return zoom.IsCode(err, zoom.CodeNetworkError) || zoom.IsCode(err, zoom.CodeRateLimited)
	}
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		e.logger.Warn("download failed, retrying",
			logging.File(name),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			logging.Err(err),
		)
	}

	err = policy.Do(ctx, func() error {
		return e.fetchOnce(ctx, authedURL, target, f.FileSize)
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("downloaded", logging.File(name), slog.Int64("bytes", f.FileSize))
	return target, nil
}

// fetchOnce performs a single streaming attempt into a fresh temp file.
func (e *Engine) fetchOnce(ctx context.Context, rawURL, target string, declaredSize int64) error {
	reqCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return zoom.WrapError(zoom.CodeNetworkError, "download request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return zoom.NewError(zoom.CodeRateLimited, "download rate limited", "")
	case resp.StatusCode >= 500:
		return zoom.NewError(zoom.CodeNetworkError,
			fmt.Sprintf("download server error (HTTP %d)", resp.StatusCode), "")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return zoom.NewError(zoom.CodeDownloadFailed,
			fmt.Sprintf("download URL rejected (HTTP %d)", resp.StatusCode),
			"download URLs are time-limited; re-run the command for a fresh URL")
	default:
		return zoom.NewError(zoom.CodeDownloadFailed,
			fmt.Sprintf("download failed (HTTP %d)", resp.StatusCode), "")
	}

	tmp, err := os.CreateTemp(e.outputDir, "."+filepath.Base(target)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return zoom.WrapError(zoom.CodeNetworkError, "download interrupted", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if declaredSize > 0 && written != declaredSize {
		return zoom.NewError(zoom.CodeSizeMismatch,
			fmt.Sprintf("received %d bytes, declared %d", written, declaredSize),
			"the file may be corrupted or the recording changed while downloading")
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
