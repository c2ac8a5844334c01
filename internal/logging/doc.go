// Package logging provides structured logging utilities for the zoomfetch application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Consistent attribute naming across the codebase
//   - Token sanitization for credential material
//
// # Security Considerations
//
// Tokens are never logged directly; use SanitizeToken to log only a length
// indicator for credential material.
package logging
