package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/middleware"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
)

type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, *services.ServiceError)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, *services.ServiceError)
	Logout(ctx context.Context, refreshToken string) *services.ServiceError
	ChangePassword(ctx context.Context, userID uint, req *models.ChangePasswordRequest) *services.ServiceError
	ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) *services.ServiceError
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) *services.ServiceError
}

// AuthController handles login and session endpoints.
type AuthController struct {
	auth AuthService
}

func NewAuthController(auth AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Login handles POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, svcErr := ac.auth.Login(c.Request.Context(), &req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh handles POST /auth/refresh
func (ac *AuthController) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, svcErr := ac.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout handles POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := ac.auth.Logout(c.Request.Context(), req.RefreshToken); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ChangePassword handles POST /auth/change-password
func (ac *AuthController) ChangePassword(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := ac.auth.ChangePassword(c.Request.Context(), userID, &req); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// ForgotPassword handles POST /auth/forgot-password. The answer does not
// reveal whether the email belongs to an account.
func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := ac.auth.ForgotPassword(c.Request.Context(), &req); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// ResetPassword handles POST /auth/reset-password
func (ac *AuthController) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := ac.auth.ResetPassword(c.Request.Context(), &req); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}
