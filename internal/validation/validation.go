// internal/validation/validation.go
//
// Huelip – Validation engine: public entry points.
//
// Context
//   ValidateField and ValidateForm are the only two functions the form
//   controller, the auth API, and the CLI call.  Both are pure: they never
//   mutate their inputs, never log, and return the same result for the same
//   input.  Neither ever panics, including for wrongly typed values.
//
//------------------------------------------------------------------------------

package validation

import (
	"github.com/go-playground/validator/v10"
)

// engine is the shared go-playground instance.  *validator.Validate is safe
// for concurrent use once configured.
var engine = validator.New()

// tagCheck returns a rule check backed by a go-playground tag such as
// "email" or "min=6".
func tagCheck(tag string) func(any) bool {
	return func(v any) bool {
		return engine.Var(v, tag) == nil
	}
}

// FieldResult is the outcome of ValidateField.  Error is empty on success.
type FieldResult struct {
	Success bool
	Error   string
}

// FormResult is the outcome of ValidateForm.
//
// On success Data holds the validated values (coerced where a Field asks for
// it) and Errors is nil.  On failure Data is nil and Errors maps each failing
// field to the message of its first failing rule.
type FormResult struct {
	Success bool
	Data    map[string]any
	Errors  map[string]string
}

// ValidateField checks one value against f.
func ValidateField(f Field, value any) (res FieldResult) {
	defer func() {
		if recover() != nil {
			res = FieldResult{Error: "Validation failed"}
		}
	}()

	if _, msg, ok := f.run(value); !ok {
		return FieldResult{Error: msg}
	}
	return FieldResult{Success: true}
}

// ValidateForm checks data against every field of s.  A nil map behaves like
// an empty one, so every required field reports its own message.
func ValidateForm(s *Schema, data map[string]any) (res FormResult) {
	defer func() {
		if recover() != nil {
			res = FormResult{Errors: map[string]string{"": "Validation failed"}}
		}
	}()

	errs := make(map[string]string)
	parsed := make(map[string]any, len(s.entries))

	for _, e := range s.entries {
		raw, present := data[e.name]
		out, msg, ok := e.field.run(raw)
		if !ok {
			errs[e.name] = msg
			continue
		}
		if present {
			parsed[e.name] = out
		}
	}

	if len(errs) > 0 {
		return FormResult{Errors: errs}
	}

	clean := make(map[string]any, len(data))
	for k, v := range data {
		clean[k] = v
	}
	for k, v := range parsed {
		clean[k] = v
	}
	return FormResult{Success: true, Data: clean}
}
