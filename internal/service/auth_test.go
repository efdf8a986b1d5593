package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gravix/backend/internal/apperror"
)

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	user, pair, err := env.auth.Register(context.Background(), "alice", "alice@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" {
		t.Error("Register() did not assign an ID")
	}
	if user.PasswordHash == "secret-pass" {
		t.Error("Register() stored the plaintext password")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Register() did not issue a token pair")
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"missing username", "", "a@example.com", "secret-pass"},
		{"missing email", "alice", "", "secret-pass"},
		{"missing password", "alice", "a@example.com", ""},
		{"short password", "alice", "a@example.com", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Register(context.Background(), tt.username, tt.email, tt.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice")

	_, _, err := env.auth.Register(context.Background(), "alice", "other@example.com", "secret-pass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() with taken username error = %v, want ErrConflict", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice")

	_, _, err := env.auth.Register(context.Background(), "alice2", "alice@example.com", "secret-pass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() with taken email error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice")

	user, pair, err := env.auth.Login(context.Background(), "alice", "secret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Login() user = %q, want alice", user.Username)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Login() did not issue a token pair")
	}
}

func TestLogin_SingleAnswerForBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice")

	// Unknown account and wrong password must be indistinguishable.
	_, _, errUser := env.auth.Login(context.Background(), "nobody", "secret-pass")
	_, _, errPass := env.auth.Login(context.Background(), "alice", "wrong-pass")

	if !errors.Is(errUser, apperror.ErrUnauthorized) {
		t.Errorf("Login() with unknown user error = %v, want ErrUnauthorized", errUser)
	}
	if !errors.Is(errPass, apperror.ErrUnauthorized) {
		t.Errorf("Login() with wrong password error = %v, want ErrUnauthorized", errPass)
	}
	if errUser.Error() != errPass.Error() {
		t.Errorf("credential errors differ: %q vs %q", errUser, errPass)
	}
}

// =========================================================================
// REFRESH TESTS
// =========================================================================

func TestRefresh_Success(t *testing.T) {
	env := newTestEnv(t)
	_, pair, err := env.auth.Register(context.Background(), "alice", "alice@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	access, err := env.auth.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if access == "" {
		t.Error("Refresh() returned an empty access token")
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Refresh(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Refresh(\"\") error = %v, want ErrValidation", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Refresh(context.Background(), "not.a.token")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Refresh() with garbage error = %v, want ErrUnauthorized", err)
	}
}
