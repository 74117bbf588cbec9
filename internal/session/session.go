// internal/session/session.go
//
// Server-side sessions.
//
// Context
// -------
// A signed-in browser or CLI holds one opaque token in the `huelip_session`
// cookie.  The token is the key of a Session record kept in a Store; the
// record names the user and carries the client's IP address and user agent
// as seen at sign-in.
//
// Two stores ship:
//
//	RedisStore   – go-redis v9, JSON values with a TTL.  Used in production.
//	MemoryStore  – bounded LRU, expiry checked on read.  Dev and tests.
//
// Notes
// -----
// • Tokens and ids are random UUIDs.  They carry no data.
// • An expired session reads as ErrNotFound in both stores.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown and expired tokens.
var ErrNotFound = errors.New("session: not found")

// Session is one signed-in client.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New builds a session for userID that lives for ttl.
func New(userID, ip, userAgent string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether s is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions by token.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
