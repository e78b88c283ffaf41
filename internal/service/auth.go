// Package service: authentication business logic.
//
// AuthService sits between the HTTP handlers and the credential store:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register users and verify their credentials
//   - Issue tokens and resolve them back into live user records
//   - Reset passwords (which revokes older tokens) and deactivate accounts
//   - Finish the optional GitHub sign-in by finding or creating the user
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/auth"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/repository"
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// compile-time check: the auth middleware resolves tokens through us.
var _ auth.IdentityResolver = (*AuthService)(nil)

// Session is an issued token and the moment it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// normalizeEmail makes lookups and the unique index agree on one spelling.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active account. It returns the stored user, whose
// PasswordHash never serializes.
//
// The email lookup gives the friendly Conflict; the UNIQUE index behind
// CreateUser catches the registration that races past it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.ConflictMessage("User already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, internalError(s.logger, "looking up user by email", err)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, internalError(s.logger, "creating user", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Authenticate checks the credentials and issues a session token.
//
// ORDER OF CHECKS: unknown email → NotFound; inactive → Forbidden, whether
// or not the password is right; wrong password → Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.activeUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("INVALID CREDENTIALS")
		}
		return nil, internalError(s.logger, "verifying password", err)
	}

	return s.issue(user)
}

// ResetPassword re-hashes the new password with a fresh salt. The store
// bumps the user's token version in the same write, so every token issued
// before the reset stops resolving.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.activeUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return internalError(s.logger, "updating password", err)
	}

	s.logger.Info("password reset", slog.String("userID", user.ID))
	return nil
}

// ResolveIdentity verifies a token and re-fetches the live user record.
//
// All failures are Unauthorized: a bad or expired token, a user that no
// longer exists, or a token minted before the last password reset. An
// inactive user still resolves; the middleware answers 403 for that.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperror.Unauthorized("Token expired")
		}
		return nil, apperror.Unauthorized("Invalid token")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("User no longer exists")
		}
		return nil, internalError(s.logger, "loading user for token", err)
	}

	if user.TokenVersion != claims.Version {
		return nil, apperror.Unauthorized("Token has been revoked")
	}

	return user, nil
}

// Deactivate flips the user to inactive. There is no way back; running it
// twice is harmless.
func (s *AuthService) Deactivate(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return internalError(s.logger, "looking up user by email", err)
	}
	if !user.Active {
		return nil
	}

	if err := s.users.SetActive(ctx, user.ID, false); err != nil {
		return internalError(s.logger, "deactivating user", err)
	}

	s.logger.Info("user deactivated", slog.String("userID", user.ID))
	return nil
}

// LoginWithGitHub finishes GitHub sign-in: it finds the catalog user with
// the GitHub account's email (creating a password-less one on first use)
// and issues the same session a password login would.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*Session, error) {
	if ghUser == nil {
		return nil, apperror.ValidationFailed("github", "missing GitHub profile")
	}
	email := normalizeEmail(ghUser.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "GitHub account has no verified email address")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user, err = s.createGitHubUser(ctx, ghUser.DisplayName(), email)
	}
	if err != nil {
		return nil, internalError(s.logger, "finding GitHub user", err)
	}

	if !user.Active {
		return nil, apperror.Forbidden("INACTIVE USER")
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, name, email string) (*model.User, error) {
	user := &model.User{Name: name, Email: email, Active: true}
	err := s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// Lost a race with another first sign-in for the same address.
		return s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// activeUserByEmail is the lookup shared by Authenticate and ResetPassword.
func (s *AuthService) activeUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("USER NOT FOUND")
		}
		return nil, internalError(s.logger, "looking up user by email", err)
	}
	if !user.Active {
		return nil, apperror.Forbidden("INACTIVE USER")
	}
	return user, nil
}

func (s *AuthService) hash(password string) (string, error) {
	if password == "" {
		return "", apperror.ValidationFailed("password", "password is required")
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return "", internalError(s.logger, "hashing password", err)
	}
	return hash, nil
}

func (s *AuthService) issue(user *model.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, internalError(s.logger, "signing token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}
