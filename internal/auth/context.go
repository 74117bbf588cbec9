// internal/auth/context.go
//
// Request identity helpers shared by the auth component and anything
// mounted behind its LoadSession middleware.
//
// Usage
// -----
//
//	// After the session cookie resolves to a live session.
//	ctx = auth.WithIdentity(ctx, auth.Identity{UserID: u.ID, SessionID: s.ID, Token: s.Token})
//
//	// Downstream code retrieves it.
//	id, ok := auth.FromContext(ctx)
//
// Notes
// -----
// • The sentinel errors below are what the auth service returns.  HTTP
//   handlers map them onto 409 and 401 responses.
package auth

import (
	"context"
	"errors"
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
)

// Identity is the signed-in user behind a request.
type Identity struct {
	UserID    string
	SessionID string
	Token     string
}

// identityKey is unexported to avoid context-key collisions.
type identityKey struct{}

// WithIdentity returns a new context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity from ctx.  ok is false when the
// request is anonymous.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserID is shorthand for FromContext(ctx).UserID.
func UserID(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	return id.UserID, ok
}
