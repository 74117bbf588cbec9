package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huelip/huelip/internal/envelope"
)

// Fixed user-facing messages.
const (
	MsgTimeout      = "Request timeout. Please try again."
	MsgConnectivity = "Unable to connect to the server. Please check your internet connection."
	MsgAPIFallback  = "An error occurred"
	MsgUnexpected   = "An unexpected error occurred. Please try again later."
	MsgSuccess      = "Success"
)

// Status codes used for failures that never reached a server response.
const (
	StatusNetwork = 0
	StatusTimeout = 408
	StatusUnknown = 500
)

// Error is the one failure shape every call returns.
//
// Errors is decoded from an API error body.  It is nil when the body had no
// `errors` key or its value was not a list of issues, and an empty, non-nil
// slice for transport, timeout, and unexpected failures.  RawErrors keeps the
// body's `errors` value byte for byte, whatever its shape.
type Error struct {
	StatusCode int              `json:"statusCode"`
	Message    string           `json:"message"`
	Errors     []envelope.Issue `json:"errors,omitempty"`
	RawErrors  json.RawMessage  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Success is always false; it mirrors the wire shape.
func (e *Error) Success() bool { return false }

// AsError extracts an *Error from err.  Every error this package returns
// satisfies it.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func timeoutError() *Error {
	return &Error{StatusCode: StatusTimeout, Message: MsgTimeout, Errors: []envelope.Issue{}}
}

func networkError() *Error {
	return &Error{StatusCode: StatusNetwork, Message: MsgConnectivity, Errors: []envelope.Issue{}}
}

func unexpectedError() *Error {
	return &Error{StatusCode: StatusUnknown, Message: MsgUnexpected, Errors: []envelope.Issue{}}
}
