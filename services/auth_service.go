package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/management-backend/events"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer is the part of TokenService the auth flow depends on.
type TokenIssuer interface {
	GenerateTokenPair(userID uint, email string) (*TokenPair, error)
	ValidateToken(tokenStr, expectedType string) (*TokenClaims, error)
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	logger *zap.Logger

	resets   repository.PasswordResetRepository
	accounts events.AccountPublisher
	resetTTL time.Duration
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// WithPasswordReset enables the forgot/reset flow. Reset tokens go out through
// publisher; a nil publisher drops them.
func (s *AuthService) WithPasswordReset(resets repository.PasswordResetRepository, publisher events.AccountPublisher, ttl time.Duration) *AuthService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s.resets = resets
	s.accounts = publisher
	s.resetTTL = ttl
	return s
}

var (
	errInvalidCredentials = &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}
	errInvalidResetToken  = &ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid or expired reset token"}
	errResetUnavailable   = &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Password reset is not configured"}
)

// Login checks credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, *ServiceError) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		s.logger.Error("Login lookup failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to log in"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "User is disabled"}
	}

	// a new login supersedes every earlier session
	if err := s.users.RevokeAllRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to log in"}
	}
	return s.issue(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A revoked or unknown token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, *ServiceError) {
	claims, err := s.tokens.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid refresh token"}
	}

	stored, err := s.users.FindRefreshToken(ctx, claims.TokenID)
	if err != nil || stored.IsRevoked || stored.UserID != claims.UserID || time.Now().After(stored.ExpiresAt) {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid refresh token"}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid refresh token"}
	}

	// the revoke is the rotation point: a concurrent refresh with the same
	// token loses here and gets nothing
	err = s.users.RevokeRefreshToken(ctx, claims.TokenID)
	if errors.Is(err, repository.ErrTokenAlreadyRevoked) {
		s.logger.Warn("Refresh token reused", zap.Uint("user_id", user.ID), zap.String("token_id", claims.TokenID))
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid refresh token"}
	}
	if err != nil {
		s.logger.Error("Failed to revoke refresh token", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to refresh token"}
	}
	return s.issue(ctx, user)
}

// Logout revokes the given refresh token. Unknown or already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) *ServiceError {
	claims, err := s.tokens.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil
	}
	err = s.users.RevokeRefreshToken(ctx, claims.TokenID)
	if err != nil && !errors.Is(err, repository.ErrTokenAlreadyRevoked) {
		s.logger.Error("Failed to revoke refresh token", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to log out"}
	}
	return nil
}

// ChangePassword replaces the password and revokes every outstanding refresh token.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *models.ChangePasswordRequest) *ServiceError {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Old password is incorrect"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to hash password"}
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update password", zap.Uint("user_id", userID), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to change password"}
	}
	if err := s.users.RevokeAllRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("Failed to revoke refresh tokens after password change", zap.Uint("user_id", userID), zap.Error(err))
	}
	return nil
}

// ForgotPassword issues a reset token for the account with the given email
// and publishes it for delivery. Unknown or disabled accounts get the same
// answer as real ones.
func (s *AuthService) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) *ServiceError {
	if s.resets == nil {
		return errResetUnavailable
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		s.logger.Error("Password reset lookup failed", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to request password reset"}
	}
	if !user.IsActive {
		return nil
	}

	// only the newest link works
	if err := s.resets.InvalidateForUser(ctx, user.ID); err != nil {
		s.logger.Error("Failed to invalidate reset tokens", zap.Uint("user_id", user.ID), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to request password reset"}
	}

	token, err := newResetToken()
	if err != nil {
		s.logger.Error("Failed to generate reset token", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to request password reset"}
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.resets.Create(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashResetToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		s.logger.Error("Failed to store reset token", zap.Uint("user_id", user.ID), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to request password reset"}
	}

	s.logger.Info("Password reset requested", zap.Uint("user_id", user.ID))
	s.accounts.PublishAccountEvent(ctx, models.AccountEvent{
		Type:      "password.reset_requested",
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: &expiresAt,
		Timestamp: time.Now(),
	})
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Every
// session of the user is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) *ServiceError {
	if s.resets == nil {
		return errResetUnavailable
	}

	hash := hashResetToken(req.Token)
	stored, err := s.resets.FindValid(ctx, hash, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return errInvalidResetToken
	}
	if err != nil {
		s.logger.Error("Reset token lookup failed", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to reset password"}
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		return errInvalidResetToken
	}

	err = s.resets.Consume(ctx, hash)
	if errors.Is(err, repository.ErrTokenAlreadyUsed) {
		return errInvalidResetToken
	}
	if err != nil {
		s.logger.Error("Failed to consume reset token", zap.Uint("user_id", user.ID), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to reset password"}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to hash password"}
	}
	user.PasswordHash = string(passwordHash)
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update password", zap.Uint("user_id", user.ID), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to reset password"}
	}

	if err := s.users.RevokeAllRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to revoke refresh tokens after password reset", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	if err := s.resets.InvalidateForUser(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to invalidate reset tokens", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("Password reset completed", zap.Uint("user_id", user.ID))
	s.accounts.PublishAccountEvent(ctx, models.AccountEvent{
		Type:      "password.reset_completed",
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: time.Now(),
	})
	return nil
}

// Authenticate validates an access token and returns the user id it carries.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (uint, error) {
	claims, err := s.tokens.ValidateToken(accessToken, tokenTypeAccess)
	if err != nil {
		return 0, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return 0, ErrInvalidToken
	}
	return user.ID, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*models.TokenResponse, *ServiceError) {
	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate tokens", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to generate tokens"}
	}
	if err := s.users.CreateRefreshToken(ctx, &models.RefreshToken{
		TokenID:   pair.RefreshID,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to generate tokens"}
	}
	return &models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
