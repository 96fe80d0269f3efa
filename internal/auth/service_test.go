package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pollchat/pollchat-server/internal/store"
	"github.com/pollchat/pollchat-server/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()

	svc := NewService(memory.New(), &JWTConfig{
		Secret: []byte("test-secret"),
		Issuer: "pollchat",
		TTL:    time.Hour,
	})
	// The signed token's expiry is validated against the real clock, so the
	// injected clock starts at the present and only moves forward.
	now := time.Now()
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestRegisterAndValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "Alice@Example.com", "secret1", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a login token")
	}

	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess == nil {
		t.Fatal("expected a live session")
	}
	if sess.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", sess.Email)
	}
	// Display name defaults to the email when omitted.
	if sess.DisplayName != "alice@example.com" {
		t.Fatalf("expected default display name, got %q", sess.DisplayName)
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "secret1", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty email, got %v", err)
	}
	if _, err := svc.Register(ctx, "a@b.com", "short", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "secret1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "ALICE@example.com", "secret2", "alice2")
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "secret1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sess, err := svc.Validate(ctx, token)
	if err != nil || sess == nil {
		t.Fatalf("expected live session, got %+v err=%v", sess, err)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		sess, err := svc.Validate(ctx, token)
		if err != nil {
			t.Fatalf("validate %q: %v", token, err)
		}
		if sess != nil {
			t.Fatalf("expected nil session for %q, got %+v", token, sess)
		}
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	other := &JWTConfig{Secret: []byte("other-secret"), Issuer: "pollchat", TTL: time.Hour}
	token, err := GenerateToken(other, "alice@example.com", "alice", "sid", time.Now())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	sess, err := svc.Validate(ctx, token)
	if err != nil || sess != nil {
		t.Fatalf("expected forged token rejected, got %+v err=%v", sess, err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice@example.com", "secret1", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	sess, err := svc.Validate(ctx, token)
	if err != nil || sess != nil {
		t.Fatalf("expected revoked session, got %+v err=%v", sess, err)
	}
	// Logging out again is a no-op.
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("repeated logout: %v", err)
	}
}

func TestExpiredSessionSweptOnValidate(t *testing.T) {
	svc, now := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice@example.com", "secret1", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	*now = now.Add(2 * time.Hour)

	sess, err := svc.Validate(ctx, token)
	if err != nil || sess != nil {
		t.Fatalf("expected expired session rejected, got %+v err=%v", sess, err)
	}

	// The stored record was deleted, not just hidden.
	if _, err := svc.store.GetSession(ctx, token); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session swept, got %v", err)
	}
}

func TestUpdateProfileRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "secret1", "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	account, err := svc.Account(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	account.Bio = "hello"
	account.Status = "around"
	if err := svc.UpdateProfile(ctx, account); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	got, err := svc.Account(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if got.Bio != "hello" || got.Status != "around" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "secret1"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
