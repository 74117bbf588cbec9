package auth

import (
	"github.com/huelip/huelip/internal/envelope"
	"github.com/huelip/huelip/internal/validation"
)

// Request schemas.  Messages are part of the API contract; clients show
// them next to the offending field.
var (
	signupSchema = validation.Object(
		validation.Key("name", validation.String().Trim().
			Required("Name is required")),
		validation.Key("email", validation.String().Trim().
			Required("Email is required").
			Email("Invalid email format")),
		validation.Key("password", validation.String().
			Required("Password is required").
			Min(6, "Password must be at least 6 characters long")),
	)

	signinSchema = validation.Object(
		validation.Key("email", validation.String().Trim().
			Required("Email is required").
			Email("Invalid email address")),
		validation.Key("password", validation.String().
			Required("Password is required")),
	)

	checkEmailSchema = validation.Object(
		validation.Key("email", validation.String().Trim().
			Required("Email is required").
			Email("Invalid email format")),
	)
)

// check validates body against s.  On failure it returns one Issue per
// failing field, in schema order.
func check(s *validation.Schema, body map[string]any) (map[string]any, []envelope.Issue) {
	res := validation.ValidateForm(s, body)
	if res.Success {
		return res.Data, nil
	}
	issues := make([]envelope.Issue, 0, len(res.Errors))
	for _, name := range s.Names() {
		if msg, ok := res.Errors[name]; ok {
			issues = append(issues, envelope.FieldIssue(name, msg))
		}
	}
	return nil, issues
}

// Bound request bodies.  Only populated after the schema passed.
type (
	signupRequest struct {
		Name     string `form:"name"`
		Email    string `form:"email"`
		Password string `form:"password"`
	}
	signinRequest struct {
		Email    string `form:"email"`
		Password string `form:"password"`
	}
	checkEmailRequest struct {
		Email string `form:"email"`
	}
)
