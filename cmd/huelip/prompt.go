// cmd/huelip/prompt.go
//
// Terminal prompts that drive a form.Session.
//
// Context
// -------
// The CLI never validates on its own.  Each answer goes through the same
// event sequence a browser form produces: SetField on input, Blur when the
// field is left, Submit at the end.  Field errors come back from the
// session and are printed under the prompt, which then asks again.
//
// Notes
// -----
// • Answers are prompted in definition order.  After a failed submit only
//   the fields that carry an error are asked again.
// • Survey's Ctrl-C maps to errAborted.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/huelip/huelip/internal/form"
)

// maxSubmits bounds how often a form is re-prompted after a failed submit.
const maxSubmits = 3

var (
	errAborted      = errors.New("aborted")
	errSubmitFailed = errors.New("form was not accepted")
)

// prompter asks for one field value.
type prompter interface {
	Ask(f form.FieldDef, current any) (any, error)
	Warn(msg string)
}

// hooks let a flow replace the default field events, e.g. the sign-up
// email field, whose blur also runs an availability check.  blur returns
// the message to show, "" when the field is fine.
type hooks struct {
	set  func(name string, v any)
	blur func(ctx context.Context, name string) string
}

/*──────────────────────────── form driver ──────────────────────────────────*/

// runForm prompts every field, submits, and repeats for failing fields
// until done() reports success or maxSubmits is reached.
func runForm(ctx context.Context, p prompter, fd *form.FormDef, s *form.Session, h hooks, done func() bool) error {
	if h.set == nil {
		h.set = s.SetField
	}
	if h.blur == nil {
		h.blur = func(_ context.Context, name string) string {
			s.Blur(name)
			return s.DisplayError(name)
		}
	}

	fields := fd.AllFields()
	for attempt := 1; ; attempt++ {
		for _, f := range fields {
			if err := askField(ctx, p, f, s, h); err != nil {
				return err
			}
		}

		s.Submit(ctx)
		if done() {
			return nil
		}

		errs := s.Errors()
		fields = failing(fd, errs)
		for _, f := range fields {
			p.Warn(fmt.Sprintf("%s: %s", f.Label, errs[f.Name]))
		}
		if attempt == maxSubmits || len(fields) == 0 {
			return errSubmitFailed
		}
	}
}

// askField prompts f until its blur reports no error.
func askField(ctx context.Context, p prompter, f form.FieldDef, s *form.Session, h hooks) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := p.Ask(f, s.Value(f.Name))
		if err != nil {
			return err
		}
		h.set(f.Name, v)
		msg := h.blur(ctx, f.Name)
		if msg == "" {
			return nil
		}
		p.Warn(msg)
	}
}

// failing returns the fields of fd that have an error, in order.
func failing(fd *form.FormDef, errs map[string]string) []form.FieldDef {
	var out []form.FieldDef
	for _, f := range fd.AllFields() {
		if _, ok := errs[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

/*──────────────────────────── survey prompter ──────────────────────────────*/

type surveyPrompter struct {
	errOut io.Writer
}

func (sp surveyPrompter) Ask(f form.FieldDef, current any) (any, error) {
	var (
		prompt survey.Prompt
		answer any
	)
	switch f.Type {
	case "password":
		var s string
		prompt, answer = &survey.Password{Message: f.Label, Help: f.Placeholder}, &s
	case "checkbox":
		b, _ := current.(bool)
		var out bool
		prompt, answer = &survey.Confirm{Message: f.Label, Default: b}, &out
	case "select", "radio":
		var s string
		sel := &survey.Select{Message: f.Label, Options: f.Options, Help: f.Placeholder}
		if cur, ok := current.(string); ok && contains(f.Options, cur) {
			sel.Default = cur
		}
		prompt, answer = sel, &s
	default:
		cur, _ := current.(string)
		var s string
		prompt, answer = &survey.Input{Message: f.Label, Default: cur, Help: f.Placeholder}, &s
	}

	if err := survey.AskOne(prompt, answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return nil, errAborted
		}
		return nil, err
	}

	switch a := answer.(type) {
	case *string:
		return *a, nil
	case *bool:
		return *a, nil
	}
	return nil, fmt.Errorf("prompt: unexpected answer type %T", answer)
}

func (sp surveyPrompter) Warn(msg string) {
	fmt.Fprintf(sp.errOut, "  ✗ %s\n", msg)
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}
