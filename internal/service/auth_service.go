package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/civicworks/issue-service/internal/auth"
	"github.com/civicworks/issue-service/internal/config"
	"github.com/civicworks/issue-service/internal/domain"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/pkg/util"
)

// AuthService handles registration, login and password lifecycle.
type AuthService struct {
	users  repository.UserRepository
	resets repository.PasswordResetRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
	logger *zap.Logger
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	tokens *auth.TokenManager,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{users: users, resets: resets, tokens: tokens, cfg: cfg, logger: logger}
}

// Register creates a CITIZEN account. Emails are canonicalized to lowercase
// once here; everywhere else they compare byte for byte.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" || len(password) < 8 {
		return nil, util.NewValidationError("email, name and a password of at least 8 characters required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, util.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, util.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleCitizen,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, util.MapError(err)
	}

	return s.issueToken(user)
}

// Login verifies credentials and issues a token. Blocked accounts cannot
// log in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthenticated("invalid credentials")
		}
		return nil, util.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, util.NewUnauthenticated("invalid credentials")
	}
	if user.IsBlocked {
		return nil, util.NewForbidden("account blocked")
	}

	return s.issueToken(user)
}

// RequestPasswordReset issues a reset token. It does not reveal whether the
// email exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return "", nil
		}
		return "", util.MapError(err)
	}

	token := &repository.PasswordResetToken{
		Email:     email,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.PasswordResetTTLMinutes) * time.Minute),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", util.MapError(err)
	}
	return token.Token, nil
}

// ResetPassword redeems a reset token once.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < 8 {
		return util.NewValidationError("password of at least 8 characters required", nil)
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewValidationError("invalid or expired reset token", nil)
		}
		return util.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return util.NewValidationError("invalid or expired reset token", nil)
	}

	user, err := s.users.GetByEmail(ctx, token.Email)
	if err != nil {
		return util.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return util.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return util.MapError(err)
	}
	return util.MapError(s.resets.MarkUsed(ctx, token.ID))
}

// ChangePassword updates the caller's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Identity, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return util.NewValidationError("password of at least 8 characters required", nil)
	}
	user, err := s.users.GetByEmail(ctx, actor.Email)
	if err != nil {
		return util.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		return util.NewUnauthenticated("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return util.NewInternalError(err)
	}
	user.PasswordHash = hash
	return util.MapError(s.users.Update(ctx, user))
}

func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
