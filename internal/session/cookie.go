package session

import (
	"net/http"
	"time"
)

// CookieName carries the session token.
const CookieName = "huelip_session"

// SetCookie hands the session token to the client.  secure forces the
// Secure attribute; it is also set whenever the request came over TLS.
func SetCookie(w http.ResponseWriter, r *http.Request, s *Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Token returns the session token sent with r.
//
// ok == false when the cookie is missing or empty.
func Token(r *http.Request) (token string, ok bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
