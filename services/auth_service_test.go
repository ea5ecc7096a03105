package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hashed(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	password := "strongpassword123"
	testUser := &models.User{ID: 5, Email: "test@example.com", PasswordHash: hashed(t, password), IsActive: true}
	pair := &services.TokenPair{AccessToken: "access", RefreshToken: "refresh", RefreshID: "jti-1", RefreshExpiresAt: time.Now().Add(time.Hour)}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockTokens := new(MockTokenService)
		svc := services.NewAuthService(mockRepo, mockTokens, zap.NewNop())

		mockRepo.On("FindByEmail", ctx, testUser.Email).Return(testUser, nil).Once()
		mockRepo.On("RevokeAllRefreshTokens", ctx, testUser.ID).Return(nil).Once()
		mockTokens.On("GenerateTokenPair", testUser.ID, testUser.Email).Return(pair, nil).Once()
		mockRepo.On("CreateRefreshToken", ctx, mock.MatchedBy(func(rt *models.RefreshToken) bool {
			return rt.TokenID == "jti-1" && rt.UserID == testUser.ID
		})).Return(nil).Once()

		resp, svcErr := svc.Login(ctx, &models.LoginRequest{Email: " Test@Example.com ", Password: password})

		assert.Nil(t, svcErr)
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		mockRepo.AssertExpectations(t)
		mockTokens.AssertExpectations(t)
	})

	t.Run("User Not Found", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := services.NewAuthService(mockRepo, new(MockTokenService), zap.NewNop())
		mockRepo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, repository.ErrNotFound).Once()

		_, svcErr := svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: password})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
	})

	t.Run("Incorrect Password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := services.NewAuthService(mockRepo, new(MockTokenService), zap.NewNop())
		mockRepo.On("FindByEmail", ctx, testUser.Email).Return(testUser, nil).Once()

		_, svcErr := svc.Login(ctx, &models.LoginRequest{Email: testUser.Email, Password: "wrong"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
	})

	t.Run("Disabled User", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := services.NewAuthService(mockRepo, new(MockTokenService), zap.NewNop())
		disabled := *testUser
		disabled.IsActive = false
		mockRepo.On("FindByEmail", ctx, testUser.Email).Return(&disabled, nil).Once()

		_, svcErr := svc.Login(ctx, &models.LoginRequest{Email: testUser.Email, Password: password})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	})
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 5, Email: "test@example.com", IsActive: true}
	claims := &services.TokenClaims{UserID: 5, Type: "refresh", TokenID: "old"}
	pair := &services.TokenPair{AccessToken: "a2", RefreshToken: "r2", RefreshID: "new", RefreshExpiresAt: time.Now().Add(time.Hour)}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockTokens := new(MockTokenService)
		svc := services.NewAuthService(mockRepo, mockTokens, zap.NewNop())

		mockTokens.On("ValidateToken", "r1", "refresh").Return(claims, nil).Once()
		mockRepo.On("FindRefreshToken", ctx, "old").Return(&models.RefreshToken{TokenID: "old", UserID: 5, ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()
		mockRepo.On("FindByID", ctx, uint(5)).Return(user, nil).Once()
		mockRepo.On("RevokeRefreshToken", ctx, "old").Return(nil).Once()
		mockTokens.On("GenerateTokenPair", uint(5), user.Email).Return(pair, nil).Once()
		mockRepo.On("CreateRefreshToken", ctx, mock.AnythingOfType("*models.RefreshToken")).Return(nil).Once()

		resp, svcErr := svc.Refresh(ctx, "r1")

		assert.Nil(t, svcErr)
		assert.Equal(t, "r2", resp.RefreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Concurrent Reuse", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockTokens := new(MockTokenService)
		svc := services.NewAuthService(mockRepo, mockTokens, zap.NewNop())

		// the lookup still sees the token live; another refresh revoked it first
		mockTokens.On("ValidateToken", "r1", "refresh").Return(claims, nil).Once()
		mockRepo.On("FindRefreshToken", ctx, "old").Return(&models.RefreshToken{TokenID: "old", UserID: 5, ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()
		mockRepo.On("FindByID", ctx, uint(5)).Return(user, nil).Once()
		mockRepo.On("RevokeRefreshToken", ctx, "old").Return(repository.ErrTokenAlreadyRevoked).Once()

		_, svcErr := svc.Refresh(ctx, "r1")

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
		mockTokens.AssertNotCalled(t, "GenerateTokenPair", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "CreateRefreshToken", mock.Anything, mock.Anything)
	})

	t.Run("Revoked Token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockTokens := new(MockTokenService)
		svc := services.NewAuthService(mockRepo, mockTokens, zap.NewNop())

		mockTokens.On("ValidateToken", "r1", "refresh").Return(claims, nil).Once()
		mockRepo.On("FindRefreshToken", ctx, "old").Return(&models.RefreshToken{TokenID: "old", UserID: 5, IsRevoked: true, ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

		_, svcErr := svc.Refresh(ctx, "r1")

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "RevokeRefreshToken", ctx, "old")
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	svc := services.NewAuthService(mockRepo, new(MockTokenService), zap.NewNop())
	user := &models.User{ID: 3, PasswordHash: hashed(t, "old-password"), IsActive: true}

	mockRepo.On("FindByID", ctx, uint(3)).Return(user, nil)
	mockRepo.On("Update", ctx, user).Return(nil).Once()
	mockRepo.On("RevokeAllRefreshTokens", ctx, uint(3)).Return(nil).Once()

	svcErr := svc.ChangePassword(ctx, 3, &models.ChangePasswordRequest{OldPassword: "bad", NewPassword: "new-password"})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	svcErr = svc.ChangePassword(ctx, 3, &models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	assert.Nil(t, svcErr)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
	mockRepo.AssertExpectations(t)
}

func TestTokenService(t *testing.T) {
	svc, err := services.NewTokenService(services.TokenConfig{
		Secret: "test-secret", Issuer: "management-backend",
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	pair, err := svc.GenerateTokenPair(17, "a@b.c")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)

	claims, err := svc.ValidateToken(pair.AccessToken, "access")
	require.NoError(t, err)
	assert.Equal(t, uint(17), claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)

	refresh, err := svc.ValidateToken(pair.RefreshToken, "refresh")
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.TokenID)

	_, err = svc.ValidateToken(pair.RefreshToken, "access")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	other, err := services.NewTokenService(services.TokenConfig{Secret: "other", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	_, err = other.ValidateToken(pair.AccessToken, "access")
	assert.ErrorIs(t, err, services.ErrInvalidToken)

	_, err = services.NewTokenService(services.TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 5, Email: "test@example.com", PasswordHash: hashed(t, "old-password"), IsActive: true}

	newService := func() (*services.AuthService, *MockUserRepository, *MockPasswordResets, *recordingPublisher) {
		users := new(MockUserRepository)
		resets := new(MockPasswordResets)
		publisher := &recordingPublisher{}
		svc := services.NewAuthService(users, new(MockTokenService), zap.NewNop()).
			WithPasswordReset(resets, publisher, 30*time.Minute)
		return svc, users, resets, publisher
	}

	t.Run("Forgot Then Reset", func(t *testing.T) {
		svc, users, resets, publisher := newService()
		u := *user

		var stored *models.PasswordResetToken
		users.On("FindByEmail", ctx, "test@example.com").Return(&u, nil).Once()
		resets.On("InvalidateForUser", ctx, uint(5)).Return(nil).Twice()
		resets.On("Create", ctx, mock.AnythingOfType("*models.PasswordResetToken")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*models.PasswordResetToken) }).
			Return(nil).Once()

		svcErr := svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: " Test@Example.com"})

		require.Nil(t, svcErr)
		require.NotNil(t, stored)
		require.Len(t, publisher.accounts, 1)
		token := publisher.accounts[0].Token
		assert.Equal(t, "password.reset_requested", publisher.accounts[0].Type)
		assert.NotEmpty(t, token)
		assert.Len(t, stored.TokenHash, 64)
		assert.NotEqual(t, token, stored.TokenHash, "only the hash is stored")
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), stored.ExpiresAt, time.Minute)

		resets.On("FindValid", ctx, stored.TokenHash, mock.Anything).
			Return(&models.PasswordResetToken{UserID: 5, TokenHash: stored.TokenHash}, nil).Once()
		users.On("FindByID", ctx, uint(5)).Return(&u, nil).Once()
		resets.On("Consume", ctx, stored.TokenHash).Return(nil).Once()
		users.On("Update", ctx, &u).Return(nil).Once()
		users.On("RevokeAllRefreshTokens", ctx, uint(5)).Return(nil).Once()

		svcErr = svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "brand-new-password"})

		require.Nil(t, svcErr)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("brand-new-password")))
		require.Len(t, publisher.accounts, 2)
		assert.Empty(t, publisher.accounts[1].Token)
		users.AssertExpectations(t)
		resets.AssertExpectations(t)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		svc, users, resets, publisher := newService()
		users.On("FindByEmail", ctx, "nobody@example.com").Return(nil, repository.ErrNotFound).Once()

		svcErr := svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "nobody@example.com"})

		assert.Nil(t, svcErr)
		assert.Empty(t, publisher.accounts)
		resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Token Already Used", func(t *testing.T) {
		svc, users, resets, _ := newService()
		u := *user
		resets.On("FindValid", ctx, mock.AnythingOfType("string"), mock.Anything).
			Return(&models.PasswordResetToken{UserID: 5}, nil).Once()
		users.On("FindByID", ctx, uint(5)).Return(&u, nil).Once()
		resets.On("Consume", ctx, mock.AnythingOfType("string")).Return(repository.ErrTokenAlreadyUsed).Once()

		svcErr := svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: "tok", NewPassword: "brand-new-password"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Expired Or Unknown Token", func(t *testing.T) {
		svc, _, resets, _ := newService()
		resets.On("FindValid", ctx, mock.AnythingOfType("string"), mock.Anything).
			Return(nil, repository.ErrNotFound).Once()

		svcErr := svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: "tok", NewPassword: "brand-new-password"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	})

	t.Run("Not Configured", func(t *testing.T) {
		svc := services.NewAuthService(new(MockUserRepository), new(MockTokenService), zap.NewNop())

		svcErr := svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "a@b.c"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusServiceUnavailable, svcErr.StatusCode)
	})
}
