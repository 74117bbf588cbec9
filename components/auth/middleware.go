package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/huelip/huelip/internal/auth"
	"github.com/huelip/huelip/internal/session"
)

type sessionKey struct{}

// LoadSession resolves the session cookie.  A live session is attached to
// the request context, both as *session.Session and as auth.Identity.
// Missing, unknown, and expired tokens leave the request anonymous; a
// store failure answers 500.
func (c *Component) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := session.Token(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := c.svc.Session(r.Context(), token)
		switch {
		case errors.Is(err, session.ErrNotFound):
			next.ServeHTTP(w, r)
			return
		case err != nil:
			c.fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = auth.WithIdentity(ctx, auth.Identity{
			UserID:    sess.UserID,
			SessionID: sess.ID,
			Token:     sess.Token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}
