package cmd

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teemow/zoomfetch/internal/config"
	"github.com/teemow/zoomfetch/internal/zoom"
)

// uuidPattern matches Zoom meeting UUIDs: base64-like identifiers.
var uuidPattern = regexp.MustCompile(`^[a-zA-Z0-9+/=_-]+$`)

// validateMeetingID rejects malformed meeting identifiers before they reach
// a URL path. Numeric ids are 9-12 digits; UUIDs are base64-like and
// bounded in length.
func validateMeetingID(id string) error {
	if id == "" {
		return zoom.NewError(zoom.CodeInvalidMeetingID, "meeting id cannot be empty", "")
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return zoom.NewError(zoom.CodeInvalidMeetingID,
			"meeting id contains invalid characters", "path separators are not allowed")
	}

	digitsOnly := true
	for _, r := range id {
		if r < '0' || r > '9' {
			digitsOnly = false
			break
		}
	}
	if digitsOnly {
		if len(id) < 9 || len(id) > 12 {
			return zoom.NewError(zoom.CodeInvalidMeetingID,
				fmt.Sprintf("numeric meeting id must be 9-12 digits, got %d", len(id)), "")
		}
		return nil
	}

	if !uuidPattern.MatchString(id) {
		return zoom.NewError(zoom.CodeInvalidMeetingID,
			fmt.Sprintf("invalid meeting id format: %q", id),
			"expected a numeric id (9-12 digits) or a UUID")
	}
	if len(id) > 100 {
		return zoom.NewError(zoom.CodeInvalidMeetingID,
			"meeting id exceeds maximum length", "UUIDs are at most 100 characters")
	}
	return nil
}

// parseDate parses a YYYY-MM-DD command-line date.
func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", flag, value)
	}
	return t, nil
}

// resolveTarget maps the --scope/--user flags onto an API target for the
// given credential.
func resolveTarget(ctx context.Context, cfg *config.Config, auth zoom.Auth, scope, user string) (zoom.Target, error) {
	return zoom.Resolve(ctx, auth, zoom.ResolveInput{
		Mode:           zoom.Mode(scope),
		Subject:        user,
		DefaultSubject: cfg.DefaultUser,
		AccountID:      cfg.ZoomAccountID,
	})
}
