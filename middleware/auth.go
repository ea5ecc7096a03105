package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "userID"

// Authenticator resolves an access token to an active user id.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (uint, error)
}

// PermissionChecker answers whether a user holds a permission code.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uint, code string) (bool, error)
}

// AuthMiddleware requires a valid bearer access token and stores the user id.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed token"})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequirePermission lets the request through only when the authenticated
// user holds code. Must run after AuthMiddleware.
func RequirePermission(checker PermissionChecker, logger *zap.Logger, code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		allowed, err := checker.HasPermission(c.Request.Context(), userID, code)
		if err != nil {
			logger.Error("Permission check failed", zap.Uint("user_id", userID), zap.String("permission", code), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not enough permissions", "details": code})
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the id stored by AuthMiddleware.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
