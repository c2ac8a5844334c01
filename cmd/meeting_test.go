package cmd

import (
	"strings"
	"testing"

	"github.com/teemow/zoomfetch/internal/config"
	"github.com/teemow/zoomfetch/internal/zoom"
)

func TestValidateMeetingID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		expectErr bool
	}{
		{"numeric nine digits", "123456789", false},
		{"numeric twelve digits", "123456789012", false},
		{"numeric too short", "12345678", true},
		{"numeric too long", "1234567890123", true},
		{"uuid", "abc123XYZ+=_-", false},
		{"uuid with padding", "4444AAAiAAAAAiAAiAii4w==", false},
		{"uuid with slash", "abc123/def", true},
		{"empty", "", true},
		{"path traversal", "../etc/passwd", true},
		{"backslash", `abc\def`, true},
		{"uuid too long", strings.Repeat("a", 101), true},
		{"invalid characters", "abc def!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMeetingID(tt.id)
			if tt.expectErr && err == nil {
				t.Errorf("validateMeetingID(%q) expected error, got nil", tt.id)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("validateMeetingID(%q) unexpected error: %v", tt.id, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("--from", "2024-03-15")
	if err != nil {
		t.Fatalf("parseDate returned error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Errorf("parseDate = %v, want 2024-03-15", d)
	}

	if _, err := parseDate("--from", "15.03.2024"); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := parseDate("--from", ""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DEBUG", "DEBUG"},
		{"debug", "DEBUG"},
		{"warn", "WARN"},
		{"WARNING", "WARN"},
		{"error", "ERROR"},
		{"INFO", "INFO"},
		{"", "INFO"},
		{"bogus", "INFO"},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got.String() != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestInferTarget(t *testing.T) {
	cfg := &config.Config{ZoomAccountID: "acct-1"}

	service := zoom.NewServiceAuth("acct-1", "client", "secret", nil)
	target := inferTarget(cfg, service)
	if target.Mode != zoom.ModeAccount || target.Subject != "acct-1" {
		t.Errorf("service target = %+v, want account/acct-1", target)
	}

	user := zoom.NewUserAuth(nil, "", nil)
	target = inferTarget(cfg, user)
	if target.Mode != zoom.ModeUser || target.Subject != "me" {
		t.Errorf("user target = %+v, want user/me", target)
	}
}
