// internal/form/session.go
//
// Huelip – Forms subsystem: per-form state controller.
//
// Context
//   A Session owns the live state of one form instance: current values,
//   per-field error messages, per-field touched flags, and whether a submit
//   is in flight.  Front ends (the CLI prompt, tests, or any other driver)
//   feed it edit, blur, and submit events, then read the state back to decide
//   what to show.
//
// Workflow
//   •  SetField replaces a value and always clears that field’s error.  It
//      never touches the touched flag.  Re-validation waits for Blur or Submit.
//   •  Blur marks the field touched and validates it.  A failure sets the
//      error.  A pass leaves any existing error in place, so an injected
//      server error survives until the value is edited.
//   •  Submit marks every field touched and validates the whole form.  On
//      failure the errors are replaced and the submit function is not called.
//      On success the errors are cleared, IsSubmitting is raised, and the
//      submit function runs with a copy of the values, coerced where the
//      schema trims.  IsSubmitting drops again once it returns, whatever the
//      outcome.
//   •  SetFieldError and ClearFieldError let the submit function surface
//      server-side problems on a specific field.
//   •  Reset restores the construction-time values and clears everything else.
//
// Notes
//   •  All methods are safe for concurrent use.  The submit function runs
//      WITHOUT the lock held, so it may call back into the Session.
//   •  IsSubmitting is advisory.  SetField and Blur are accepted while a
//      submit is pending.
//   •  Submit function errors are logged at debug level and swallowed.  The
//      function is expected to report them through SetFieldError first.
//   •  Blur never clears an error, even when the value now passes.  Users
//      may find that surprising; raise it with product before changing it,
//      the blur tests pin the current behaviour.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/validation"
)

// Values maps a field name to its current value.
type Values map[string]any

// clone returns a shallow copy.
func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// SubmitFunc receives a snapshot of the values after a passing validation.
// Trimmed fields arrive trimmed; the Session's own values are left as typed.
type SubmitFunc func(ctx context.Context, values Values) error

// Options configures NewSession.
type Options struct {
	Initial  Values             // Construction-time values; copied.
	Schema   *validation.Schema // Required.
	OnSubmit SubmitFunc         // Required.
	Logger   *zap.SugaredLogger // Optional; falls back to zap.S().
}

// State is a point-in-time copy of a Session.
type State struct {
	Values       Values
	Errors       map[string]string
	Touched      map[string]bool
	IsSubmitting bool
}

// Session is the controller for one form instance.
type Session struct {
	schema   *validation.Schema
	onSubmit SubmitFunc
	log      *zap.SugaredLogger
	initial  Values

	mu         sync.Mutex
	values     Values
	errors     map[string]string
	touched    map[string]bool
	submitting bool
}

// ErrNoSchema is returned by NewSession when Options.Schema is nil.
var ErrNoSchema = errors.New("form: session needs a schema")

// NewSession builds a Session.  Fields present in the schema but missing from
// Initial start out absent, which validates exactly like an empty value.
func NewSession(opts Options) (*Session, error) {
	if opts.Schema == nil {
		return nil, ErrNoSchema
	}
	if opts.OnSubmit == nil {
		return nil, errors.New("form: session needs a submit function")
	}
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}
	initial := opts.Initial.clone()
	return &Session{
		schema:   opts.Schema,
		onSubmit: opts.OnSubmit,
		log:      log,
		initial:  initial,
		values:   initial.clone(),
		errors:   make(map[string]string),
		touched:  make(map[string]bool),
	}, nil
}

// NewSessionFromDef compiles fd and builds a Session over its initial values.
func NewSessionFromDef(fd *FormDef, onSubmit SubmitFunc, log *zap.SugaredLogger) (*Session, error) {
	schema, err := fd.Schema()
	if err != nil {
		return nil, err
	}
	return NewSession(Options{
		Initial:  fd.InitialValues(),
		Schema:   schema,
		OnSubmit: onSubmit,
		Logger:   log,
	})
}

/*──────────────────────────── events ─────────────────────────────────────*/

// SetField replaces the value of name and clears its error.
func (s *Session) SetField(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	delete(s.errors, name)
}

// Blur marks name touched and validates it.  A passing value never clears
// an existing error.  Names unknown to the schema are only marked touched.
func (s *Session) Blur(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[name] = true

	f, ok := s.schema.Field(name)
	if !ok {
		return
	}
	if res := validation.ValidateField(f, s.values[name]); !res.Success {
		s.errors[name] = res.Error
	}
}

// Submit validates the whole form and, when it passes, runs the submit
// function.  It reports whether the submit function was called.  The call
// blocks until the submit function returns.
func (s *Session) Submit(ctx context.Context) bool {
	s.mu.Lock()
	for _, name := range s.schema.Names() {
		s.touched[name] = true
	}
	for name := range s.values {
		s.touched[name] = true
	}

	res := validation.ValidateForm(s.schema, s.values)
	if !res.Success {
		s.errors = res.Errors
		s.mu.Unlock()
		return false
	}

	s.errors = make(map[string]string)
	s.submitting = true
	snapshot := Values(res.Data)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	if err := s.runSubmit(ctx, snapshot); err != nil {
		s.log.Debugw("form submit rejected", "err", err)
	}
	return true
}

// runSubmit calls the submit function and turns a panic into an error so the
// submitting flag is always lowered.
func (s *Session) runSubmit(ctx context.Context, values Values) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form: submit function panicked: %v", r)
		}
	}()
	return s.onSubmit(ctx, values)
}

// SetFieldError attaches message to name, independent of touched.
func (s *Session) SetFieldError(name, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[name] = message
}

// ClearFieldError removes the error on name, if any.
func (s *Session) ClearFieldError(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, name)
}

// Reset restores the construction-time values and clears errors, touched,
// and the submitting flag.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = s.initial.clone()
	s.errors = make(map[string]string)
	s.touched = make(map[string]bool)
	s.submitting = false
}

/*──────────────────────────── readers ────────────────────────────────────*/

// Values returns a copy of the current values.
func (s *Session) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.clone()
}

// Value returns the current value of name.
func (s *Session) Value(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

// Errors returns a copy of the current errors.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Error returns the error on name.  ok is false when the field is clean.
func (s *Session) Error(name string) (msg string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok = s.errors[name]
	return msg, ok
}

// Touched returns a copy of the touched flags.
func (s *Session) Touched() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.touched))
	for k, v := range s.touched {
		out[k] = v
	}
	return out
}

// IsTouched reports whether name has been blurred or submitted.
func (s *Session) IsTouched(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched[name]
}

// IsSubmitting reports whether a submit function is running.
func (s *Session) IsSubmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// DisplayError returns the error a front end should show for name: the
// error, but only once the field is touched.
func (s *Session) DisplayError(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.touched[name] {
		return ""
	}
	return s.errors[name]
}

// State returns a consistent snapshot of the whole Session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Values:       s.values.clone(),
		Errors:       make(map[string]string, len(s.errors)),
		Touched:      make(map[string]bool, len(s.touched)),
		IsSubmitting: s.submitting,
	}
	for k, v := range s.errors {
		st.Errors[k] = v
	}
	for k, v := range s.touched {
		st.Touched[k] = v
	}
	return st
}

// Schema returns the schema the Session validates against.
func (s *Session) Schema() *validation.Schema { return s.schema }
