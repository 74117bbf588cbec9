// internal/form/schema.go
//
// Huelip – Forms subsystem: compile a FormDef into a validation schema.
//
// Context
//   A FormDef describes rules declaratively.  Schema turns those rules into a
//   validation.Schema the Session can run on blur and submit.  Fields that
//   list explicit `rules` keep that order.  Otherwise rules are derived from
//   the shorthand attributes in this order: required, email type, minlength,
//   maxlength, pattern, and options.
//
// Notes
//   •  Checkboxes compile to boolean fields; every other type is a string.
//   •  A field with no required rule is optional: an empty value skips its
//      remaining rules.
//   •  Default messages match the ones the server renders, so an override
//      YAML only needs `error:` when the wording should change.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"regexp"

	"github.com/huelip/huelip/internal/validation"
)

// Schema compiles fd into a validation.Schema.  Field order follows the
// definition.
func (fd *FormDef) Schema() (*validation.Schema, error) {
	var entries []validation.Entry
	for _, f := range fd.AllFields() {
		vf, err := compileField(&f)
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", fd.ID, err)
		}
		entries = append(entries, validation.Key(f.Name, vf))
	}
	return validation.Object(entries...), nil
}

// InitialValues returns the construction-time values: the YAML default when
// set, otherwise "" for string fields and false for checkboxes.
func (fd *FormDef) InitialValues() Values {
	out := make(Values)
	for _, f := range fd.AllFields() {
		switch {
		case f.Type == "checkbox":
			b, _ := f.Default.(bool)
			out[f.Name] = b
		case f.Default != nil:
			out[f.Name] = fmt.Sprint(f.Default)
		default:
			out[f.Name] = ""
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Field compilation
// -----------------------------------------------------------------------------

func compileField(f *FieldDef) (validation.Field, error) {
	var vf validation.Field
	if f.Type == "checkbox" {
		vf = validation.Bool()
	} else {
		vf = validation.String()
	}
	if f.Trim {
		vf = vf.Trim()
	}

	if len(f.Rules) > 0 {
		return compileRules(f, vf)
	}

	if f.Required {
		if f.Type == "checkbox" {
			vf = vf.Equal(true, requiredMsg(f))
		} else {
			vf = vf.Required(requiredMsg(f))
		}
	} else {
		vf = vf.Optional()
	}
	if f.Type == "email" {
		vf = vf.Email(invalidMsg(f))
	}
	if f.MinLength > 0 {
		vf = vf.Min(f.MinLength, "")
	}
	if f.MaxLength > 0 {
		vf = vf.Max(f.MaxLength, "")
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return vf, fmt.Errorf("field %s: %w", f.Name, err)
		}
		vf = vf.Pattern(re, patternMsg(f))
	}
	if (f.Type == "select" || f.Type == "radio") && len(f.Options) > 0 {
		vf = vf.OneOf(f.Options, invalidMsg(f))
	}
	return vf, nil
}

func compileRules(f *FieldDef, vf validation.Field) (validation.Field, error) {
	hasRequired := false
	for _, r := range f.Rules {
		if r.Rule == "required" {
			hasRequired = true
		}
	}
	if !hasRequired && !f.Required {
		vf = vf.Optional()
	}

	for _, r := range f.Rules {
		msg := r.Message
		switch r.Rule {
		case "required":
			if msg == "" {
				msg = requiredMsg(f)
			}
			if f.Type == "checkbox" {
				vf = vf.Equal(true, msg)
			} else {
				vf = vf.Required(msg)
			}
		case "email":
			if msg == "" {
				msg = invalidMsg(f)
			}
			vf = vf.Email(msg)
		case "min":
			n, ok := ruleInt(r.Value)
			if !ok {
				return vf, fmt.Errorf("field %s: min needs an integer", f.Name)
			}
			vf = vf.Min(n, msg)
		case "max":
			n, ok := ruleInt(r.Value)
			if !ok {
				return vf, fmt.Errorf("field %s: max needs an integer", f.Name)
			}
			vf = vf.Max(n, msg)
		case "pattern":
			p, _ := r.Value.(string)
			re, err := regexp.Compile(p)
			if err != nil {
				return vf, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if msg == "" {
				msg = patternMsg(f)
			}
			vf = vf.Pattern(re, msg)
		case "oneof":
			opts, ok := ruleStrings(r.Value)
			if !ok {
				opts = f.Options
			}
			if msg == "" {
				msg = invalidMsg(f)
			}
			vf = vf.OneOf(opts, msg)
		case "equal":
			if msg == "" {
				msg = invalidMsg(f)
			}
			vf = vf.Equal(r.Value, msg)
		default:
			return vf, fmt.Errorf("field %s: unknown rule %q", f.Name, r.Rule)
		}
	}
	return vf, nil
}

// user-friendly default messages
func requiredMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "This field is required."
}
func invalidMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Invalid input."
}
func patternMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Input does not match required format."
}
