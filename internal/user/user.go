// internal/user/user.go
//
// User accounts.
//
// Context
// -------
// Huelip keeps one `users` table (see internal/database/migrations):
//
//	users (id PK, name, email UNIQUE, email_verified, password_hash,
//	       created_at, updated_at)
//
// The auth API needs three questions answered: does this email exist, who
// owns this email, and who owns this id.  Store answers them with plain
// parameterised queries through sqlx and maps driver errors onto the
// sentinel errors below.
//
// Notes
// -----
// • Emails are stored and compared in lower case.
// • PasswordHash never leaves the server; User.Public strips it.
package user

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("user: not found")
	// ErrEmailTaken is returned by Create on a duplicate email.
	ErrEmailTaken = errors.New("user: email already registered")
)

// User is one row of the users table.
type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	EmailVerified bool      `db:"email_verified"`
	PasswordHash  string    `db:"password_hash"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Public is the JSON-safe view of a User.
type Public struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public returns u without secrets.
func (u *User) Public() Public {
	return Public{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
