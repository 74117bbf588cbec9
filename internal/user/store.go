package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store runs user queries against one database.  It is safe for concurrent
// use.
type Store struct {
	db    *sqlx.DB
	group singleflight.Group // coalesces availability checks per email
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

const userColumns = `id, name, email, email_verified, password_hash, created_at, updated_at`

// ByEmail returns the user with email, or ErrNotFound.
func (s *Store) ByEmail(ctx context.Context, email string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	return s.get(ctx, q, NormalizeEmail(email))
}

// ByID returns the user with id, or ErrNotFound.
func (s *Store) ByID(ctx context.Context, id string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	return s.get(ctx, q, id)
}

func (s *Store) get(ctx context.Context, q string, arg any) (*User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user: query: %w", err)
	}
	return &u, nil
}

// Create inserts u.  The email is normalised in place.  A duplicate email
// returns ErrEmailTaken.
func (s *Store) Create(ctx context.Context, u *User) error {
	const q = `INSERT INTO users
	             (id, name, email, email_verified, password_hash, created_at, updated_at)
	           VALUES
	             (:id, :name, :email, :email_verified, :password_hash, :created_at, :updated_at)`

	u.Email = NormalizeEmail(u.Email)
	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrEmailTaken
		}
		return fmt.Errorf("user: insert: %w", err)
	}
	return nil
}

// EmailAvailable reports whether no account uses email.  Concurrent calls
// for the same address share one query.
func (s *Store) EmailAvailable(ctx context.Context, email string) (bool, error) {
	key := NormalizeEmail(email)
	v, err, _ := s.group.Do(key, func() (any, error) {
		const q = `SELECT COUNT(*) FROM users WHERE email = ?`
		var n int
		if err := s.db.GetContext(ctx, &n, q, key); err != nil {
			return false, fmt.Errorf("user: availability: %w", err)
		}
		return n == 0, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
