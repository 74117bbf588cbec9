// internal/envelope/envelope.go
//
// Huelip – JSON response envelope shared by the API and its client.
//
// Context
//   Every backend response, success or failure, is one JSON object with the
//   same outer keys so the HTTP client can normalise it without knowing the
//   route.  Successful bodies carry `data` and `message`.  Failed bodies add
//   an `errors` array of Issues whose `path` names the offending field.
//
// Notes
//   •  `success` is derived from the status code (< 400), never set by hand.
//   •  `errors` is always an array in a Failure body, possibly empty, so
//      clients can iterate without a nil check.
//
//------------------------------------------------------------------------------

package envelope

import (
	"encoding/json"
	"net/http"
)

// Issue is one field-level problem.  Path mirrors the validator output: the
// first string segment is the field name.
type Issue struct {
	Path    []any  `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FieldIssue builds an Issue for a top-level field.
func FieldIssue(field, message string) Issue {
	return Issue{Path: []any{field}, Message: message}
}

// Field returns the first string segment of Path, or "" when there is none.
func (i Issue) Field() string {
	for _, p := range i.Path {
		if s, ok := p.(string); ok {
			return s
		}
	}
	return ""
}

// Response is a successful body.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// OK builds a Response; an empty message becomes "Success".
func OK(status int, data any, message string) Response {
	if message == "" {
		message = "Success"
	}
	return Response{StatusCode: status, Data: data, Message: message, Success: status < 400}
}

// Failure is an error body.
type Failure struct {
	StatusCode int     `json:"statusCode"`
	Data       any     `json:"data"`
	Message    string  `json:"message"`
	Success    bool    `json:"success"`
	Errors     []Issue `json:"errors"`
}

// Fail builds a Failure.  A nil issue list is encoded as [].
func Fail(status int, message string, issues ...Issue) Failure {
	if message == "" {
		message = "Something went wrong"
	}
	if issues == nil {
		issues = []Issue{}
	}
	return Failure{StatusCode: status, Message: message, Errors: issues}
}

// Write sends body as JSON with the given status.
func Write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteOK is Write(w, status, OK(status, data, message)).
func WriteOK(w http.ResponseWriter, status int, data any, message string) {
	Write(w, status, OK(status, data, message))
}

// WriteFail is Write(w, status, Fail(status, message, issues...)).
func WriteFail(w http.ResponseWriter, status int, message string, issues ...Issue) {
	Write(w, status, Fail(status, message, issues...))
}
