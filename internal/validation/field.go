// internal/validation/field.go
//
// Huelip – Validation engine: single-field validators.
//
// Context
//   A Field describes the shape one value must have.  It carries a type
//   (string, boolean, or any), an ordered list of rules, and an optional
//   coercion (trim).  Rules run in declaration order and the FIRST failing
//   rule produces the message.  Builders return a copy, so a Field that is
//   already part of a Schema can never be changed from the outside.
//
// Workflow
//   •  String(), Bool(), and Any() start a Field.
//   •  Min, Max, Email, Pattern, OneOf, Equal, and Check append rules.
//   •  Trim and Optional adjust how the value is read before the rules run.
//   •  ValidateField runs the Field against one value and never panics.
//
// Notes
//   •  A missing value (nil) is the zero value of the Field's type, so an
//      absent key and an empty string fail the same rules.
//   •  Length and email rules delegate to go-playground/validator so the
//      client, the API, and the config loader share one rule vocabulary.
//
//------------------------------------------------------------------------------

package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the value type a Field accepts.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindBool
)

// String returns a human-readable kind name used in type messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	default:
		return "any"
	}
}

// rule is one check inside a Field.
type rule struct {
	name    string
	message string
	check   func(v any) bool
}

// Field is an immutable single-value validator.  The zero value accepts any
// value.
type Field struct {
	kind     Kind
	typeMsg  string
	trim     bool
	optional bool
	rules    []rule
}

// String starts a Field that only accepts strings.
func String() Field { return Field{kind: KindString} }

// Bool starts a Field that only accepts booleans.
func Bool() Field { return Field{kind: KindBool} }

// Any starts a Field that accepts every value type.
func Any() Field { return Field{kind: KindAny} }

// Kind reports the accepted value type.
func (f Field) Kind() Kind { return f.kind }

// TypeMessage overrides the message used when the value has the wrong type.
func (f Field) TypeMessage(msg string) Field {
	f.typeMsg = msg
	return f
}

// Trim makes the Field trim surrounding whitespace before the rules run.
// The trimmed value is what ValidateForm returns.
func (f Field) Trim() Field {
	f.trim = true
	return f
}

// Optional skips every rule when the (coerced) value is missing or an empty
// string.  The type check still applies, and false is not empty.
func (f Field) Optional() Field {
	f.optional = true
	return f
}

// Min requires a string of at least n characters (runes).
func (f Field) Min(n int, msg string) Field {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters.", n)
	}
	return f.with(rule{name: "min", message: msg, check: tagCheck(fmt.Sprintf("min=%d", n))})
}

// Max requires a string of at most n characters (runes).
func (f Field) Max(n int, msg string) Field {
	if msg == "" {
		msg = fmt.Sprintf("Must be less than %d characters.", n+1)
	}
	return f.with(rule{name: "max", message: msg, check: tagCheck(fmt.Sprintf("max=%d", n))})
}

// Required requires a non-empty string, or true for boolean fields.
func (f Field) Required(msg string) Field {
	if msg == "" {
		msg = "This field is required."
	}
	return f.with(rule{name: "required", message: msg, check: tagCheck("required")})
}

// Email requires an email-shaped string.
func (f Field) Email(msg string) Field {
	if msg == "" {
		msg = "Invalid email address."
	}
	return f.with(rule{name: "email", message: msg, check: tagCheck("email")})
}

// Pattern requires the string to match re.
func (f Field) Pattern(re *regexp.Regexp, msg string) Field {
	if msg == "" {
		msg = "Input does not match required format."
	}
	return f.with(rule{name: "pattern", message: msg, check: func(v any) bool {
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}})
}

// OneOf requires the string to equal one of opts.
func (f Field) OneOf(opts []string, msg string) Field {
	if msg == "" {
		msg = "Invalid input."
	}
	allowed := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		allowed[o] = struct{}{}
	}
	return f.with(rule{name: "oneof", message: msg, check: func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, hit := allowed[s]
		return hit
	}})
}

// Equal requires the value to equal want, e.g. Bool().Equal(true, "…") for
// a terms checkbox.
func (f Field) Equal(want any, msg string) Field {
	if msg == "" {
		msg = "Invalid input."
	}
	return f.with(rule{name: "equal", message: msg, check: func(v any) bool { return v == want }})
}

// Check appends a custom rule.  fn receives the typed, coerced value.
func (f Field) Check(name, msg string, fn func(v any) bool) Field {
	if msg == "" {
		msg = "Invalid input."
	}
	return f.with(rule{name: name, message: msg, check: fn})
}

// with appends r to a private copy of the rule list.
func (f Field) with(r rule) Field {
	f.rules = append(f.rules[:len(f.rules):len(f.rules)], r)
	return f
}

// typeMessage is the failure message for a wrongly typed value.
func (f Field) typeMessage() string {
	if f.typeMsg != "" {
		return f.typeMsg
	}
	return "Expected " + f.kind.String() + "."
}

// parse applies the type check and coercion.  ok is false when the value
// has the wrong type.
func (f Field) parse(value any) (out any, ok bool) {
	switch f.kind {
	case KindString:
		if value == nil {
			return "", true
		}
		s, isStr := value.(string)
		if !isStr {
			return nil, false
		}
		if f.trim {
			s = strings.TrimSpace(s)
		}
		return s, true
	case KindBool:
		if value == nil {
			return false, true
		}
		b, isBool := value.(bool)
		if !isBool {
			return nil, false
		}
		return b, true
	default:
		if s, isStr := value.(string); isStr && f.trim {
			return strings.TrimSpace(s), true
		}
		return value, true
	}
}

// run parses value and applies every rule in order, stopping at the first
// failure.
func (f Field) run(value any) (out any, msg string, ok bool) {
	out, ok = f.parse(value)
	if !ok {
		return nil, f.typeMessage(), false
	}
	if f.optional && isEmpty(out) {
		return out, "", true
	}
	for _, r := range f.rules {
		if !safeCheck(r.check, out) {
			return nil, r.message, false
		}
	}
	return out, "", true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// safeCheck turns a panicking rule into a failed rule.
func safeCheck(fn func(any) bool, v any) (pass bool) {
	defer func() {
		if recover() != nil {
			pass = false
		}
	}()
	return fn(v)
}
