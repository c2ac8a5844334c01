// Package cmd implements the command-line interface for zoomfetch.
//
// This package provides the following commands:
//   - login: Authenticate with Zoom through the hosted auth broker
//   - logout: Delete the stored user credential
//   - whoami: Show the authenticated Zoom identity
//   - recordings: List recordings for a meeting or a date range
//   - download: Download recording artifacts and derive speaker diarization
//   - serve: Run the OAuth relay broker with health and metrics endpoints
//   - version: Display version information
package cmd
