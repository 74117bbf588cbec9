package authflow

import (
	"context"

	"github.com/huelip/huelip/internal/apiclient"
	"github.com/huelip/huelip/internal/session"
)

// sessionCookie renders the Cookie header the API expects.
func sessionCookie(token string) string {
	return session.CookieName + "=" + token
}

// CurrentSession asks the API who owns token.  It returns nil when there is
// no token, when the call fails for any reason, or when the API reports no
// session.
func CurrentSession(ctx context.Context, c *apiclient.Client, token string) *AuthResult {
	if token == "" {
		return nil
	}
	res, err := apiclient.Get[*AuthResult](ctx, c, "/auth/session",
		apiclient.WithHeader("Cookie", sessionCookie(token)))
	if err != nil {
		return nil
	}
	return res.Data
}

// Logout ends the session on the server.  A missing token is a no-op.
func Logout(ctx context.Context, c *apiclient.Client, token string) error {
	if token == "" {
		return nil
	}
	_, err := c.Get(ctx, "/auth/signout", apiclient.WithHeader("Cookie", sessionCookie(token)))
	return err
}

// Redirect is the route guard for pages a signed-in visitor should skip.
// It returns the target and true when cur is non-nil and path is /login or
// /register.
func Redirect(cur *AuthResult, path string) (string, bool) {
	if cur == nil {
		return "", false
	}
	switch path {
	case "/login", "/register":
		return "/dashboard", true
	}
	return "", false
}
