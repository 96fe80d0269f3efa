package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pollchat/pollchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when registering an email that is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidPassword is returned when a password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides account and login-session operations. Login tokens are
// signed JWTs that are also recorded server-side, so logout revokes them and
// expiry is swept lazily on validation.
type Service struct {
	store     store.Store
	jwtConfig *JWTConfig
	now       func() time.Time
}

// NewService creates a new authentication service.
func NewService(st store.Store, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     st,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// Register creates a new account and returns a login session token.
// The email is treated as a pre-validated string.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidCredentials
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}
	if displayName == "" {
		displayName = email
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.CreateAccount(ctx, &store.Account{
		Email:        email,
		PasswordHash: hashed,
		DisplayName:  displayName,
	}); err != nil {
		if errors.Is(err, store.ErrExists) {
			return "", ErrAccountExists
		}
		return "", fmt.Errorf("create account: %w", err)
	}

	return s.issueSession(ctx, email, displayName)
}

// Login validates credentials and returns a login session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.store.GetAccount(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(account.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueSession(ctx, account.Email, account.DisplayName)
}

// Validate checks a login token and returns the session, or nil if the token
// is unknown, malformed or expired. An expired session is deleted on detection.
func (s *Service) Validate(ctx context.Context, token string) (*store.Session, error) {
	if token == "" {
		return nil, nil
	}
	if _, err := ValidateToken(s.jwtConfig, token); err != nil {
		return nil, nil
	}

	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.now().After(sess.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, nil
	}
	return sess, nil
}

// Logout revokes a login session. Idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Account retrieves the durable account record for an email.
func (s *Service) Account(ctx context.Context, email string) (*store.Account, error) {
	return s.store.GetAccount(ctx, email)
}

// UpdateProfile overwrites the mutable profile fields of an account.
func (s *Service) UpdateProfile(ctx context.Context, a *store.Account) error {
	return s.store.UpdateAccount(ctx, a)
}

func (s *Service) issueSession(ctx context.Context, email, displayName string) (string, error) {
	now := s.now()
	token, err := GenerateToken(s.jwtConfig, email, displayName, uuid.NewString(), now)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if err := s.store.CreateSession(ctx, &store.Session{
		Token:       token,
		Email:       email,
		DisplayName: displayName,
		ExpiresAt:   now.Add(s.jwtConfig.TTL),
	}); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}
