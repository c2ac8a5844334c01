package zoom

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects which API surface a listing query uses.
type Mode string

const (
	// ModeAuto picks account for service credentials and user for
	// interactive credentials.
	ModeAuto Mode = "auto"
	// ModeAccount lists recordings across the whole account.
	ModeAccount Mode = "account"
	// ModeUser lists recordings of a single user.
	ModeUser Mode = "user"
)

// Scopes required for account-wide listing.
const (
	ScopeAccountRead       = "account:read:admin"
	ScopeAccountRecordings = "cloud_recording:read:list_account_recordings"
)

// Target is a resolved API surface: the mode to query and the subject
// (user id for user mode, account id for account mode).
type Target struct {
	Mode    Mode
	Subject string
}

// ResolveInput carries the request and configuration that drive resolution.
type ResolveInput struct {
	Mode Mode
	// Subject is an explicit user id or email from the command line.
	Subject string
	// DefaultSubject is the configured fallback user for service
	// credentials in user mode.
	DefaultSubject string
	// AccountID is the account to query in account mode.
	AccountID string
}

// Resolve decides the API surface for a credential and validates the
// required permissions before any listing call is made.
func Resolve(ctx context.Context, auth Auth, in ResolveInput) (Target, error) {
	mode := in.Mode
	if mode == "" {
		mode = ModeAuto
	}

	if mode == ModeAuto {
		if auth.Type() == CredentialService {
			mode = ModeAccount
		} else {
			mode = ModeUser
		}
	}

	switch mode {
	case ModeAccount:
		if err := requireAccountScopes(ctx, auth); err != nil {
			return Target{}, err
		}
		accountID := in.AccountID
		if accountID == "" {
			return Target{}, NewError(CodeInvalidConfig, "account mode requires an account id",
				"set ZOOM_ACCOUNT_ID")
		}
		return Target{Mode: ModeAccount, Subject: accountID}, nil

	case ModeUser:
		subject := in.Subject
		if subject == "" {
			if auth.Type() == CredentialUser {
				subject = "me"
			} else {
				subject = in.DefaultSubject
			}
		}
		if subject == "" {
			return Target{}, NewError(CodeInvalidConfig,
				"user mode with a service credential requires an explicit user",
				"pass --user or set ZOOM_DEFAULT_USER")
		}
		return Target{Mode: ModeUser, Subject: subject}, nil

	default:
		return Target{}, NewError(CodeInvalidConfig,
			fmt.Sprintf("unknown scope mode %q", in.Mode),
			"valid modes are auto, account and user")
	}
}

// requireAccountScopes fails fast when the credential is missing any scope
// account-wide listing needs, naming each missing scope.
func requireAccountScopes(ctx context.Context, auth Auth) error {
	scopes := auth.Scopes()
	if len(scopes) == 0 {
		// Service credentials only learn their scopes from the token
		// response; prime the cache once.
		if _, err := auth.AccessToken(ctx); err != nil {
			return err
		}
		scopes = auth.Scopes()
	}

	granted := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		granted[s] = true
	}

	var missing []string
	for _, required := range []string{ScopeAccountRead, ScopeAccountRecordings} {
		if !granted[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return NewError(CodeInvalidScope,
			"credential is missing required scopes: "+strings.Join(missing, ", "),
			"grant the scopes to your Zoom app or use --scope user")
	}
	return nil
}
