// Package server provides the HTTP plumbing around the OAuth broker:
// health probes, request metrics and the dedicated Prometheus endpoint.
//
// # Key Components
//
// HealthChecker serves the Kubernetes probe endpoints:
//   - /healthz: liveness, always ok while the process runs
//   - /readyz: readiness, fails once graceful shutdown starts
//   - /healthz/detailed: status plus process uptime
//
// WithMetrics wraps the broker mux so every request is recorded against the
// http_requests_total counter and http_request_duration_seconds histogram,
// labelled by method, registered route pattern and status code.
//
// MetricsServer exposes /metrics on a separate port (default :9090) so
// Prometheus scraping stays off the broker's public surface.
package server
