// Package service holds the account, session and chat business logic.
//
// AuthService sits between the HTTP handlers and the storage backend:
//
//	AuthHandler (HTTP) → AuthService (business rules) → repository.Store
//	                   ↘ auth.PasswordService (bcrypt), auth.SessionPolicy (expiry)
//
// The service is stateless. Concurrency control for uniqueness lives in the store:
// Signup checks for a taken username or email first to produce a precise error,
// and the store's own uniqueness guarantee settles any race that slips past
// that check.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/healthchat/internal/apperror"
	"github.com/sakif/healthchat/internal/auth"
	"github.com/sakif/healthchat/internal/metrics"
	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// AuthStore is the part of repository.Store the auth service needs.
type AuthStore interface {
	repository.UserRepository
	repository.SessionRepository
}

// AuthService handles signup, login, token verification and logout.
type AuthService struct {
	store     AuthStore
	passwords *auth.PasswordService
	policy    *auth.SessionPolicy
	metrics   *metrics.AuthMetrics
	logger    *slog.Logger

	// dummyHash is compared against when a login names an unknown user, so that
	// both failure paths spend the same bcrypt time.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
// m may be nil.
func NewAuthService(
	store AuthStore,
	passwords *auth.PasswordService,
	policy *auth.SessionPolicy,
	m *metrics.AuthMetrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		passwords: passwords,
		policy:    policy,
		metrics:   m,
		logger:    logger,
	}
}

// compile-time check that *AuthService can back the auth middleware
var _ auth.Verifier = (*AuthService)(nil)

// SignupInput is the data needed to create an account.
type SignupInput struct {
	Username string `json:"username"  validate:"required,min=3,max=50"`
	Email    string `json:"email"     validate:"omitempty,email,max=254"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

// normalize trims input and lower-cases the email. Usernames keep their casing;
// every backend compares them case-insensitively.
func (in *SignupInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthResult is returned by Login and SignupAndLogin.
type AuthResult struct {
	Token     string            `json:"token"`
	User      *model.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// =========================================================================
// SIGNUP
// =========================================================================

// Signup creates an account and returns its public view.
//
// Errors: validation (bad input), UsernameTaken, EmailTaken (only when an email
// was given), Unavailable (store failure).
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.PublicUser, error) {
	user, err := s.signup(ctx, in)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// SignupAndLogin creates an account and immediately opens a session for it.
func (s *AuthService) SignupAndLogin(ctx context.Context, in SignupInput) (*AuthResult, error) {
	user, err := s.signup(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.normalize()
	if err := validateInput(&in); err != nil {
		s.metrics.Observe("signup", metrics.ResultRejected)
		return nil, err
	}

	// Scan before insert: the usual case gets a precise error without a failed write.
	if _, err := s.store.FindUserByUsername(ctx, in.Username); err == nil {
		s.metrics.Observe("signup", metrics.ResultRejected)
		return nil, apperror.UsernameTaken(in.Username)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.unavailable("signup", "user store", err)
	}

	if in.Email != "" {
		if _, err := s.store.FindUserByEmail(ctx, in.Email); err == nil {
			s.metrics.Observe("signup", metrics.ResultRejected)
			return nil, apperror.EmailTaken()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, s.unavailable("signup", "user store", err)
		}
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	now := s.policy.Clock()
	user := &model.User{
		ID:           auth.GenerateID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertUser(ctx, user); err != nil {
		// Another signup won the race between our scan and our insert.
		if field, ok := repository.DuplicateField(err); ok {
			s.metrics.Observe("signup", metrics.ResultRejected)
			switch field {
			case repository.FieldUsername:
				return nil, apperror.UsernameTaken(in.Username)
			case repository.FieldEmail:
				return nil, apperror.EmailTaken()
			}
			return nil, fmt.Errorf("service/auth: inserting user %s: %w", user.ID, err)
		}
		return nil, s.unavailable("signup", "user store", err)
	}

	s.metrics.Observe("signup", metrics.ResultOK)
	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// =========================================================================
// LOGIN
// =========================================================================

// Login checks the credentials and opens a new session.
//
// An unknown username and a wrong password return the same InvalidCredentials
// error so a caller cannot probe which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.Observe("login", metrics.ResultRejected)
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = s.passwords.Verify(s.fakeHash(), password)
		s.metrics.Observe("login", metrics.ResultRejected)
		return nil, apperror.InvalidCredentials()
	}
	if err != nil {
		return nil, s.unavailable("login", "user store", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unreadable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()))
		}
		s.metrics.Observe("login", metrics.ResultRejected)
		return nil, apperror.InvalidCredentials()
	}

	return s.issueSession(ctx, user)
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	session, err := s.policy.NewSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating session: %w", err)
	}

	if err := s.store.InsertSession(ctx, session); err != nil {
		return nil, s.unavailable("login", "session store", err)
	}

	s.metrics.Observe("login", metrics.ResultOK)
	s.logger.Info("session opened",
		slog.String("userID", user.ID),
		slog.Time("expiresAt", session.ExpiresAt),
	)

	return &AuthResult{
		Token:     session.Token,
		User:      user.Public(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) fakeHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error("computing dummy password hash failed", slog.String("error", err.Error()))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// =========================================================================
// VERIFY / LOGOUT
// =========================================================================

// Verify resolves a token to its owner.
//
// ok is false when the token is unknown or expired; an expired session is deleted
// on the way out. A store failure is returned as an error, never as ok == false.
func (s *AuthService) Verify(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	session, err := s.store.FindSession(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.Observe("verify", metrics.ResultRejected)
		return "", false, nil
	}
	if err != nil {
		return "", false, s.unavailable("verify", "session store", err)
	}

	if s.policy.IsExpired(session, s.policy.Clock()) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("deleting expired session failed", slog.String("error", err.Error()))
		}
		s.metrics.Observe("verify", metrics.ResultRejected)
		return "", false, nil
	}

	s.metrics.Observe("verify", metrics.ResultOK)
	return session.UserID, true, nil
}

// Logout deletes the session. Unknown and already-deleted tokens are not errors.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return s.unavailable("logout", "session store", err)
	}
	s.metrics.Observe("logout", metrics.ResultOK)
	return nil
}

// =========================================================================
// USERS
// =========================================================================

// GetUserByID returns the public view of the user.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.PublicUser, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}

	user, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, s.unavailable("get user", "user store", err)
	}
	return user.Public(), nil
}

// unavailable logs a store failure and returns the client-facing error for it.
func (s *AuthService) unavailable(op, component string, err error) error {
	s.metrics.Observe(op, metrics.ResultError)
	s.logger.Error("storage operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable(component)
}
