package zoom

import (
	"errors"
	"fmt"
)

// Error codes reported to callers and emitted in JSON output. They are part
// of the CLI's machine-readable contract and must stay stable.
const (
	CodeAuthFailed            = "AUTH_FAILED"
	CodeMeetingNotFound       = "MEETING_NOT_FOUND"
	CodeRecordingNotFound     = "RECORDING_NOT_FOUND"
	CodeRecordingNotProcessed = "RECORDING_NOT_PROCESSED"
	CodeNoAudioAvailable      = "NO_AUDIO_AVAILABLE"
	CodeDownloadFailed        = "DOWNLOAD_FAILED"
	CodePermissionDenied      = "PERMISSION_DENIED"
	CodeInvalidMeetingID      = "INVALID_MEETING_ID"
	CodeInvalidRecordingID    = "INVALID_RECORDING_ID"
	CodeRateLimited           = "RATE_LIMITED"
	CodeTimeout               = "TIMEOUT"
	CodeNetworkError          = "NETWORK_ERROR"
	CodeInvalidScope          = "INVALID_SCOPE"
	CodeInvalidConfig         = "INVALID_CONFIG"
	CodeSizeMismatch          = "SIZE_MISMATCH"
	CodeHostNotAllowed        = "HOST_NOT_ALLOWED"
	CodeSessionExpired        = "SESSION_EXPIRED"
)

// Error is a coded domain error. Code is stable and machine-readable,
// Details carries remediation hints for the user.
type Error struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a coded error without a wrapped cause.
func NewError(code, message, details string) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// WrapError creates a coded error wrapping an underlying cause.
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the code from err, or "UNKNOWN_ERROR" when err carries
// no coded error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN_ERROR"
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
