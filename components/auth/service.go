// components/auth/service.go
//
// Account and session rules behind the auth routes.
//
// Context
// -------
// Service owns every decision that is not HTTP: password hashing, email
// uniqueness, credential checks, and session lifetime.  Handlers translate
// its sentinel errors (internal/auth) into status codes.
//
// Notes
// -----
// • Unknown emails still pay for one bcrypt comparison, so response time
//   does not reveal whether an account exists.
// • Emails are normalised by the user store.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/huelip/huelip/internal/auth"
	"github.com/huelip/huelip/internal/session"
	"github.com/huelip/huelip/internal/user"
)

// UserStore is the subset of *user.Store the service needs.
type UserStore interface {
	ByEmail(ctx context.Context, email string) (*user.User, error)
	ByID(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	EmailAvailable(ctx context.Context, email string) (bool, error)
}

// ClientMeta is copied onto new sessions.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Service implements sign-up, sign-in, sign-out, and session lookup.
type Service struct {
	users    UserStore
	sessions session.Store
	cost     int
	ttl      time.Duration
	now      func() time.Time

	// dummyHash is compared against when the email is unknown.
	dummyHash []byte
}

// NewService wires a Service.  cost below bcrypt.MinCost selects
// bcrypt.DefaultCost; a non-positive ttl selects seven days.
func NewService(users UserStore, sessions session.Store, cost int, ttl time.Duration) (*Service, error) {
	if users == nil || sessions == nil {
		return nil, errors.New("auth: user and session stores are required")
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: dummy hash: %w", err)
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		cost:      cost,
		ttl:       ttl,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// SignUp creates an account and its first session.
func (s *Service) SignUp(ctx context.Context, name, email, password string, meta ClientMeta) (*user.User, *session.Session, error) {
	free, err := s.users.EmailAvailable(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if !free {
		return nil, nil, auth.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := s.now().UTC()
	u := &user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, nil, auth.ErrEmailTaken
		}
		return nil, nil, err
	}

	sess, err := s.start(ctx, u.ID, meta)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string, meta ClientMeta) (*user.User, *session.Session, error) {
	u, err := s.users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, nil, auth.ErrInvalidCredentials
	case err != nil:
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}

	sess, err := s.start(ctx, u.ID, meta)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// SignOut deletes the session behind token.  Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// EmailAvailable reports whether email is free.  It never writes.
func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	return s.users.EmailAvailable(ctx, email)
}

// Session resolves token.  It returns session.ErrNotFound for unknown or
// expired tokens.
func (s *Service) Session(ctx context.Context, token string) (*session.Session, error) {
	return s.sessions.Get(ctx, token)
}

// Owner returns the user of sess, or user.ErrNotFound when the account is
// gone.
func (s *Service) Owner(ctx context.Context, sess *session.Session) (*user.User, error) {
	return s.users.ByID(ctx, sess.UserID)
}

func (s *Service) start(ctx context.Context, userID string, meta ClientMeta) (*session.Session, error) {
	sess := session.New(userID, meta.IP, meta.UserAgent, s.ttl)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("auth: create session: %w", err)
	}
	return sess, nil
}
