package auth

import (
	"context"
	"sync"
)

// FakeAuthenticator is a test double with one scripted user.
type FakeAuthenticator struct {
	mu sync.Mutex

	// Email is returned by CurrentEmail. Empty means no session.
	Email string

	// Password is the only accepted password.
	Password string

	// EmailError, if set, is returned by CurrentEmail.
	EmailError error

	// VerifyError, if set, is returned by Verify.
	VerifyError error

	// LogoutError, if set, is returned by Logout.
	LogoutError error

	// Verifies records each (email, password) checked.
	Verifies [][2]string

	// Logouts counts Logout calls.
	Logouts int
}

// NewFakeAuthenticator creates a fake logged in as email.
func NewFakeAuthenticator(email, password string) *FakeAuthenticator {
	return &FakeAuthenticator{Email: email, Password: password}
}

// CurrentEmail returns Email or ErrNoSession.
func (f *FakeAuthenticator) CurrentEmail(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EmailError != nil {
		return "", f.EmailError
	}
	if f.Email == "" {
		return "", ErrNoSession
	}
	return f.Email, nil
}

// Verify compares against the scripted user.
func (f *FakeAuthenticator) Verify(ctx context.Context, email, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Verifies = append(f.Verifies, [2]string{email, password})
	if f.VerifyError != nil {
		return false, f.VerifyError
	}
	if email != f.Email {
		return false, ErrNotFound
	}
	return password == f.Password, nil
}

// Logout clears Email.
func (f *FakeAuthenticator) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Logouts++
	if f.LogoutError != nil {
		return f.LogoutError
	}
	f.Email = ""
	return nil
}

// LogoutCount returns the number of Logout calls.
func (f *FakeAuthenticator) LogoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Logouts
}
