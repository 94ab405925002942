package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// User is a stored account.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Store keeps users and the single login session in SQLite.
type Store struct {
	db   *sql.DB
	cost int
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the session row consistent for ":memory:" too.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, cost: bcrypt.DefaultCost}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// At most one row: the logged in user.
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			started_at DATETIME NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("auth: email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("auth: password is required")
	}

	if _, err := s.UserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, string(hash), u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByEmail looks up a user.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	u, _, err := s.lookup(ctx, email)
	return u, err
}

func (s *Store) lookup(ctx context.Context, email string) (*User, string, error) {
	u := &User{}
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("query user: %w", err)
	}
	return u, hash, nil
}

// Verify reports whether password matches the stored hash for email.
// An unknown email returns ErrNotFound.
func (s *Store) Verify(ctx context.Context, email, password string) (bool, error) {
	_, hash, err := s.lookup(ctx, email)
	if err != nil {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

// Login verifies the credential and makes email the session user.
func (s *Store) Login(ctx context.Context, email, password string) error {
	ok, err := s.Verify(ctx, email, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPassword
	}
	u, err := s.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, started_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, started_at = excluded.started_at`,
		u.ID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// CurrentEmail returns the session user's email or ErrNoSession.
func (s *Store) CurrentEmail(ctx context.Context) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT u.email FROM session s JOIN users u ON u.id = s.user_id WHERE s.id = 1`,
	).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("query session: %w", err)
	}
	return email, nil
}

// Logout removes the session. Logging out with no session is not an error.
func (s *Store) Logout(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
