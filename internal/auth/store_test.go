package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var _ Authenticator = (*Store)(nil)
var _ Authenticator = (*FakeAuthenticator)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.cost = bcrypt.MinCost
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	for _, table := range []string{"users", "session"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestOpen_ReopenKeepsUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.cost = bcrypt.MinCost
	if _, err := s.CreateUser(context.Background(), "a@example.com", "pw"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.UserByEmail(context.Background(), "a@example.com"); err != nil {
		t.Errorf("UserByEmail after reopen: %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  Alice@Example.com ", "secret")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Error("ID not set")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}

	if _, err := s.CreateUser(ctx, "alice@example.com", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate err = %v, want ErrUserExists", err)
	}
}

func TestCreateUser_RequiresFields(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name, email, password string
	}{
		{"no email", "", "pw"},
		{"no password", "a@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateUser(context.Background(), tt.email, tt.password); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "a@example.com", "right"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     bool
		wantErr  error
	}{
		{"match", "a@example.com", "right", true, nil},
		{"mismatch", "a@example.com", "wrong", false, nil},
		{"case insensitive email", "A@EXAMPLE.COM", "right", true, nil},
		{"unknown user", "b@example.com", "right", false, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Verify(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CurrentEmail(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("before login err = %v, want ErrNoSession", err)
	}

	s.CreateUser(ctx, "a@example.com", "pw-a")
	s.CreateUser(ctx, "b@example.com", "pw-b")

	if err := s.Login(ctx, "a@example.com", "nope"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("bad login err = %v, want ErrInvalidPassword", err)
	}
	if err := s.Login(ctx, "a@example.com", "pw-a"); err != nil {
		t.Fatalf("Login a: %v", err)
	}
	if email, _ := s.CurrentEmail(ctx); email != "a@example.com" {
		t.Errorf("CurrentEmail = %q, want a", email)
	}

	if err := s.Login(ctx, "b@example.com", "pw-b"); err != nil {
		t.Fatalf("Login b: %v", err)
	}
	if email, _ := s.CurrentEmail(ctx); email != "b@example.com" {
		t.Errorf("CurrentEmail = %q, want b", email)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.CurrentEmail(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("after logout err = %v, want ErrNoSession", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestFakeAuthenticator(t *testing.T) {
	f := NewFakeAuthenticator("a@example.com", "pw")
	ctx := context.Background()

	if ok, err := f.Verify(ctx, "a@example.com", "pw"); !ok || err != nil {
		t.Errorf("Verify match = (%v, %v)", ok, err)
	}
	if ok, _ := f.Verify(ctx, "a@example.com", "x"); ok {
		t.Error("Verify mismatch returned true")
	}
	if _, err := f.Verify(ctx, "z@example.com", "pw"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v", err)
	}

	f.Logout(ctx)
	if _, err := f.CurrentEmail(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("after logout err = %v", err)
	}
	if f.LogoutCount() != 1 {
		t.Errorf("Logouts = %d", f.LogoutCount())
	}
}
