package logging

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyMeeting   = "meeting_id"
	KeySession   = "session_id"
	KeyScope     = "scope"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyFile      = "file"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithMeeting returns a logger with the meeting id attribute set.
func WithMeeting(logger *slog.Logger, meetingID string) *slog.Logger {
	return logger.With(slog.String(KeyMeeting, meetingID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Meeting returns a slog attribute for the meeting id.
func Meeting(id string) slog.Attr {
	return slog.String(KeyMeeting, id)
}

// MeetingID returns a slog attribute for a numeric meeting id.
func MeetingID(id int64) slog.Attr {
	return slog.String(KeyMeeting, strconv.FormatInt(id, 10))
}

// Session returns a slog attribute for the broker session id.
func Session(id string) slog.Attr {
	return slog.String(KeySession, id)
}

// Scope returns a slog attribute for the resolved API scope.
func Scope(scope string) slog.Attr {
	return slog.String(KeyScope, scope)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// File returns a slog attribute for a file path or name.
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
