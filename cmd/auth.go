package cmd

import (
	"log/slog"

	"github.com/teemow/zoomfetch/internal/config"
	"github.com/teemow/zoomfetch/internal/tokenstore"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// newAuth picks the credential for API commands. Server-to-Server
// credentials win when fully configured; otherwise the persisted user
// credential from a previous login is used.
func newAuth(cfg *config.Config, logger *slog.Logger) (zoom.Auth, error) {
	if cfg.HasServiceCredentials() {
		return zoom.NewServiceAuth(cfg.ZoomAccountID, cfg.ZoomClientID, cfg.ZoomClientSecret, logger), nil
	}

	path, err := tokenstore.DefaultPath()
	if err != nil {
		return nil, err
	}
	if tokenstore.Exists(path) {
		tokens, err := tokenstore.Load(path)
		if err != nil {
			return nil, err
		}
		return zoom.NewUserAuth(tokens, path, logger), nil
	}

	return nil, zoom.NewError(zoom.CodeAuthFailed, "no credentials available",
		"run 'zoomfetch login' or set ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID and ZOOM_CLIENT_SECRET")
}

// newAPIClient builds the authenticated API client for a command.
func newAPIClient(cfg *config.Config, logger *slog.Logger) (*zoom.Client, error) {
	auth, err := newAuth(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []zoom.Option{}
	if cfg.APIBaseURL != "" {
		opts = append(opts, zoom.WithBaseURL(cfg.APIBaseURL))
	}
	return zoom.NewClient(auth, logger, opts...), nil
}
