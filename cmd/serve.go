package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/broker"
	"github.com/teemow/zoomfetch/internal/instrumentation"
	"github.com/teemow/zoomfetch/internal/server"
)

const (
	// defaultHTTPAddr is the broker's public listen address.
	defaultHTTPAddr = ":8080"

	// storeSweepInterval is how often the session store evicts expired
	// entries.
	storeSweepInterval = time.Minute

	// serveShutdownTimeout bounds graceful shutdown of the listeners.
	serveShutdownTimeout = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		httpAddr       string
		clientID       string
		clientSecret   string
		redirectURL    string
		sessionTTL     time.Duration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth relay broker",
		Long: `Run the auth broker HTTP service the login command talks to.

The broker holds the OAuth client secret, exchanges authorization codes
server-side and hands the resulting tokens to the polling CLI exactly once.
Sessions live in memory with a TTL; nothing is persisted.

Endpoints: POST /zoom/auth/start, GET /callback, GET /zoom/auth/poll,
POST /zoom/token/refresh, plus /healthz and /readyz probes. Prometheus
metrics are served on a dedicated port (default :9090).

Credentials come from --client-id/--client-secret or the ZOOM_CLIENT_ID and
ZOOM_CLIENT_SECRET environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				clientID = os.Getenv("ZOOM_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("ZOOM_CLIENT_SECRET")
			}
			if redirectURL == "" {
				redirectURL = os.Getenv("ZOOMFETCH_REDIRECT_URL")
			}

			return runServe(serveConfig{
				HTTPAddr:       httpAddr,
				ClientID:       clientID,
				ClientSecret:   clientSecret,
				RedirectURL:    redirectURL,
				SessionTTL:     sessionTTL,
				MetricsEnabled: metricsEnabled,
				MetricsAddr:    metricsAddr,
			})
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", defaultHTTPAddr, "Broker listen address")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Zoom OAuth client id. Can also use ZOOM_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Zoom OAuth client secret. Can also use ZOOM_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "Public callback URL registered with Zoom. Can also use ZOOMFETCH_REDIRECT_URL env var.")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", broker.DefaultSessionTTL, "Lifetime of pending login sessions and undelivered tokens")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

type serveConfig struct {
	HTTPAddr       string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	SessionTTL     time.Duration
	MetricsEnabled bool
	MetricsAddr    string
}

func runServe(cfg serveConfig) error {
	appCfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(appCfg)

	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	store := broker.NewMemoryStore(storeSweepInterval, logger)
	defer store.Close()

	handler, err := broker.NewHandler(broker.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		SessionTTL:   cfg.SessionTTL,
	}, store, logger)
	if err != nil {
		return err
	}
	handler.SetMetrics(provider.Metrics())

	if err := provider.RegisterSessionGauge(func() int64 {
		return int64(store.Len())
	}); err != nil {
		return fmt.Errorf("failed to register session gauge: %w", err)
	}

	health := server.NewHealthChecker()

	mux := http.NewServeMux()
	handler.Routes(mux)
	health.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.WithMetrics(mux, provider.Metrics()),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("broker listening", "addr", cfg.HTTPAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("broker server failed: %w", err)
	case <-shutdownCtx.Done():
	}

	logger.Info("shutting down")
	health.SetShuttingDown()
	health.SetReady(false)

	ctx, cancelShutdown := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("broker shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}
