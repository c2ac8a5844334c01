// Package instrumentation provides OpenTelemetry metrics for the token
// broker, exported in Prometheus format on a dedicated port.
//
// The package exposes the following metrics:
//
// Broker/HTTP metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - broker_active_sessions: Gauge of live session-store entries
//
// OAuth relay metrics:
//   - oauth_exchange_total: Counter of authorization-code exchanges by result
//   - oauth_token_refresh_total: Counter of refresh relays by result
//   - broker_tokens_delivered_total: Counter of one-time token deliveries
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - OTEL_SERVICE_NAME: Service name (default: zoomfetch)
//   - OTEL_SERVICE_INSTANCE_ID: Instance identifier (default: hostname)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(instrumentation.Config{
//		ServiceName:    "zoomfetch",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordHTTPRequest(ctx, "POST", "/zoom/auth/start", 200, time.Since(start))
//	recorder.RecordExchange(ctx, instrumentation.ResultSuccess)
package instrumentation
