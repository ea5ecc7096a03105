package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/middleware"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
)

type UserService interface {
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, *services.ServiceError)
	Get(ctx context.Context, id uint) (*models.User, *services.ServiceError)
	List(ctx context.Context, page, limit int) ([]models.User, int64, *services.ServiceError)
	Update(ctx context.Context, id uint, req *models.UpdateUserRequest) (*models.User, *services.ServiceError)
	Disable(ctx context.Context, id uint) (*models.User, *services.ServiceError)
	Enable(ctx context.Context, id uint) (*models.User, *services.ServiceError)
	Delete(ctx context.Context, id uint) *services.ServiceError
}

// PermissionLister reports the effective permission codes of a user.
type PermissionLister interface {
	PermissionsForUser(ctx context.Context, userID uint) ([]string, error)
}

type UserController struct {
	users UserService
	perms PermissionLister
}

func NewUserController(users UserService, perms PermissionLister) *UserController {
	return &UserController{users: users, perms: perms}
}

// Register handles POST /users
func (uc *UserController) Register(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, svcErr := uc.users.Create(c.Request.Context(), &req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Me handles GET /users/me and includes the caller's permission codes.
func (uc *UserController) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, svcErr := uc.users.Get(c.Request.Context(), userID)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	perms, err := uc.perms.PermissionsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch permissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "permissions": perms})
}

// UpdateMe handles PUT /users/me
func (uc *UserController) UpdateMe(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uc.update(c, userID)
}

// ListUsers handles GET /users
func (uc *UserController) ListUsers(c *gin.Context) {
	page, limit := parsePaginationParams(c)

	users, total, svcErr := uc.users.List(c.Request.Context(), page, limit)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  models.NewMetaData(page, limit, total),
	})
}

// GetUser handles GET /users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	user, svcErr := uc.users.Get(c.Request.Context(), id)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	uc.update(c, id)
}

func (uc *UserController) update(c *gin.Context, id uint) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, svcErr := uc.users.Update(c.Request.Context(), id, &req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DisableUser handles POST /users/:id/disable
func (uc *UserController) DisableUser(c *gin.Context) {
	uc.setActive(c, uc.users.Disable)
}

// EnableUser handles POST /users/:id/enable
func (uc *UserController) EnableUser(c *gin.Context) {
	uc.setActive(c, uc.users.Enable)
}

func (uc *UserController) setActive(c *gin.Context, fn func(context.Context, uint) (*models.User, *services.ServiceError)) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	user, svcErr := fn(c.Request.Context(), id)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if caller, _ := middleware.CurrentUserID(c); caller == id {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete your own account"})
		return
	}

	if svcErr := uc.users.Delete(c.Request.Context(), id); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.Status(http.StatusNoContent)
}
