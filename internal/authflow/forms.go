// internal/authflow/forms.go
//
// Huelip – client-side authentication flows.
//
// Context
//   The sign-up and sign-in screens are driven by a form.Session over an
//   embedded YAML definition.  Each flow supplies the submit function that
//   calls the API and maps failures back onto fields, so a front end only
//   forwards edit, blur, and submit events and then reads field errors.
//
// Workflow
//   •  LoadForms registers the embedded definitions, then any override
//      directories from config (later directories win).
//   •  NewSignup / NewLogin build a flow bound to an apiclient.Client.
//   •  EmailChecker runs the debounced availability check on the sign-up
//      email field.
//   •  CurrentSession and Redirect back the route guard that keeps signed-in
//      visitors away from the login and register pages.
//
//------------------------------------------------------------------------------

package authflow

import (
	"embed"
	"fmt"
	"time"

	"github.com/huelip/huelip/internal/form"
)

//go:embed forms/*.yaml
var formsFS embed.FS

// Form identifiers of the embedded definitions.
const (
	SignupFormID = "auth/signup"
	LoginFormID  = "auth/login"
)

// User-facing messages set on fields by the flows.
const (
	MsgEmailTaken         = "This email is already registered"
	MsgInvalidCredentials = "Invalid email or password"
	MsgGenericFailure     = "An error occurred. Please try again."
)

// LoadForms registers the embedded auth forms, then overrides from dirs.
func LoadForms(dirs ...string) error {
	if err := form.RegisterFS(formsFS, "forms"); err != nil {
		return fmt.Errorf("authflow: embedded forms: %w", err)
	}
	if len(dirs) == 0 {
		return nil
	}
	if err := form.RegisterForms(dirs); err != nil {
		return fmt.Errorf("authflow: form overrides: %w", err)
	}
	return nil
}

// lookup returns a registered definition or a descriptive error.
func lookup(id string) (*form.FormDef, error) {
	fd, ok := form.GetFormDef(id)
	if !ok {
		return nil, fmt.Errorf("authflow: form %q not loaded; call LoadForms first", id)
	}
	return fd, nil
}

/*──────────────────────────── wire types ─────────────────────────────────*/

// User is the public user record returned by the API.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SessionInfo describes a server-side session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResult is the data of a successful sign-up, sign-in, or session lookup.
type AuthResult struct {
	User    User        `json:"user"`
	Session SessionInfo `json:"session"`
}

// Availability is the data of an email check.
type Availability struct {
	Available bool `json:"available"`
}
