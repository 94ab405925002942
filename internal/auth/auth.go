// Package auth stores the local user record and login session used to
// confirm a disarm.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no user has the requested email.
	ErrNotFound = errors.New("auth: user not found")

	// ErrNoSession is returned when nobody is logged in.
	ErrNoSession = errors.New("auth: no session")

	// ErrUserExists is returned by CreateUser for a duplicate email.
	ErrUserExists = errors.New("auth: user already exists")

	// ErrInvalidPassword is returned by Login for a wrong password.
	ErrInvalidPassword = errors.New("auth: invalid password")
)

// Authenticator validates credentials against the stored user record.
type Authenticator interface {
	// CurrentEmail returns the email of the logged in user.
	CurrentEmail(ctx context.Context) (string, error)

	// Verify reports whether password matches the record for email.
	Verify(ctx context.Context, email, password string) (bool, error)

	// Logout ends the current session.
	Logout(ctx context.Context) error
}
