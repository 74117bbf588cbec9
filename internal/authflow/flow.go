package authflow

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/apiclient"
	"github.com/huelip/huelip/internal/form"
)

// errorMapping says where an API failure lands on the form.
type errorMapping struct {
	special      int    // status with a fixed field message
	specialField string // field that receives it
	specialMsg   string
}

// applyError turns a failed call into field errors:
//
//	special status         → fixed message on the special field
//	400 with issues        → each issue on its own field
//	anything else          → server message (or a generic one) on email
func applyError(s *form.Session, err error, m errorMapping) {
	ae, ok := apiclient.AsError(err)
	if !ok {
		s.SetFieldError("email", MsgGenericFailure)
		return
	}
	switch {
	case ae.StatusCode == m.special:
		s.SetFieldError(m.specialField, m.specialMsg)
	case ae.StatusCode == 400 && ae.Errors != nil:
		for _, is := range ae.Errors {
			if f := is.Field(); f != "" {
				s.SetFieldError(f, is.Message)
			}
		}
	default:
		msg := ae.Message
		if msg == "" {
			msg = MsgGenericFailure
		}
		s.SetFieldError("email", msg)
	}
}

// flow is the part shared by Signup and Login.
type flow struct {
	client *apiclient.Client
	log    *zap.SugaredLogger
	form   *form.Session
	def    *form.FormDef

	mu     sync.Mutex
	result *AuthResult
}

// Form exposes the underlying Session for edit, blur, and submit events.
func (f *flow) Form() *form.Session { return f.form }

// Definition returns the form definition, for labels and field order.
func (f *flow) Definition() *form.FormDef { return f.def }

// Result returns the authenticated user and session after a successful
// submit, or nil.
func (f *flow) Result() *AuthResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *flow) setResult(r *AuthResult) {
	f.mu.Lock()
	f.result = r
	f.mu.Unlock()
}

/*──────────────────────────── sign-up ────────────────────────────────────*/

// Signup drives the account creation form.
type Signup struct {
	flow
	checker *EmailChecker
}

// NewSignup builds a sign-up flow over the registered auth/signup form.
func NewSignup(c *apiclient.Client, log *zap.SugaredLogger) (*Signup, error) {
	if log == nil {
		log = zap.S()
	}
	fd, err := lookup(SignupFormID)
	if err != nil {
		return nil, err
	}
	s := &Signup{flow: flow{client: c, log: log, def: fd}}
	s.form, err = form.NewSessionFromDef(fd, s.submit, log)
	if err != nil {
		return nil, err
	}
	s.checker = NewEmailChecker(c, 0, log)
	return s, nil
}

// Checker returns the email availability checker bound to this form.
func (s *Signup) Checker() *EmailChecker { return s.checker }

// SetEmail edits the email field and resets the availability status.
func (s *Signup) SetEmail(v string) {
	s.form.SetField("email", v)
	s.checker.Reset()
}

// BlurEmail validates the email field and, when it has a value and no
// error, schedules a debounced availability check.
func (s *Signup) BlurEmail(ctx context.Context) {
	s.form.Blur("email")
	s.checker.Cancel()

	email, _ := s.form.Value("email").(string)
	email = strings.TrimSpace(email)
	if _, hasErr := s.form.Error("email"); email == "" || hasErr {
		return
	}
	s.checker.Schedule(ctx, email)
}

// Close stops any pending availability check.
func (s *Signup) Close() { s.checker.Stop() }

func (s *Signup) submit(ctx context.Context, v form.Values) error {
	res, err := apiclient.Post[AuthResult](ctx, s.client, "/auth/signup", map[string]any{
		"name":     v["name"],
		"email":    v["email"],
		"password": v["password"],
	})
	if err != nil {
		applyError(s.form, err, errorMapping{
			special:      409,
			specialField: "email",
			specialMsg:   MsgEmailTaken,
		})
		return err
	}
	s.log.Infow("signed up", "user", res.Data.User.ID)
	s.setResult(&res.Data)
	return nil
}

/*──────────────────────────── sign-in ────────────────────────────────────*/

// Login drives the sign-in form.
type Login struct {
	flow
}

// NewLogin builds a sign-in flow over the registered auth/login form.
func NewLogin(c *apiclient.Client, log *zap.SugaredLogger) (*Login, error) {
	if log == nil {
		log = zap.S()
	}
	fd, err := lookup(LoginFormID)
	if err != nil {
		return nil, err
	}
	l := &Login{flow: flow{client: c, log: log, def: fd}}
	l.form, err = form.NewSessionFromDef(fd, l.submit, log)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Login) submit(ctx context.Context, v form.Values) error {
	res, err := apiclient.Post[AuthResult](ctx, l.client, "/auth/signin", map[string]any{
		"email":    v["email"],
		"password": v["password"],
	})
	if err != nil {
		applyError(l.form, err, errorMapping{
			special:      401,
			specialField: "password",
			specialMsg:   MsgInvalidCredentials,
		})
		return err
	}
	l.log.Infow("signed in", "user", res.Data.User.ID)
	l.setResult(&res.Data)
	return nil
}
