package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
)

type RBACService interface {
	ListRoles(ctx context.Context) ([]models.Role, *services.ServiceError)
	CreateRole(ctx context.Context, req *models.CreateRoleRequest) (*models.Role, *services.ServiceError)
	UpdateRole(ctx context.Context, id uint, req *models.UpdateRoleRequest) (*models.Role, *services.ServiceError)
	DeleteRole(ctx context.Context, id uint) *services.ServiceError
	ListPermissions(ctx context.Context) ([]models.Permission, *services.ServiceError)
	ListRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, *services.ServiceError)
	AddPermissionToRole(ctx context.Context, roleID, permissionID uint) *services.ServiceError
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID uint) *services.ServiceError
	ListUserRoles(ctx context.Context, userID uint) ([]models.Role, *services.ServiceError)
	AssignRoleToUser(ctx context.Context, userID, roleID uint) *services.ServiceError
	RemoveRoleFromUser(ctx context.Context, userID, roleID uint) *services.ServiceError
}

// RBACController manages roles, permissions and role assignments.
type RBACController struct {
	rbac RBACService
}

func NewRBACController(rbac RBACService) *RBACController {
	return &RBACController{rbac: rbac}
}

// ListRoles handles GET /rbac/roles
func (rc *RBACController) ListRoles(c *gin.Context) {
	roles, svcErr := rc.rbac.ListRoles(c.Request.Context())
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// CreateRole handles POST /rbac/roles
func (rc *RBACController) CreateRole(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, svcErr := rc.rbac.CreateRole(c.Request.Context(), &req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// UpdateRole handles PUT /rbac/roles/:id
func (rc *RBACController) UpdateRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, svcErr := rc.rbac.UpdateRole(c.Request.Context(), id, &req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, role)
}

// DeleteRole handles DELETE /rbac/roles/:id
func (rc *RBACController) DeleteRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if svcErr := rc.rbac.DeleteRole(c.Request.Context(), id); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPermissions handles GET /rbac/permissions
func (rc *RBACController) ListPermissions(c *gin.Context) {
	perms, svcErr := rc.rbac.ListPermissions(c.Request.Context())
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// ListRolePermissions handles GET /rbac/roles/:id/permissions
func (rc *RBACController) ListRolePermissions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	perms, svcErr := rc.rbac.ListRolePermissions(c.Request.Context(), id)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// AddRolePermission handles POST /rbac/roles/:id/permissions
func (rc *RBACController) AddRolePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.AssignPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := rc.rbac.AddPermissionToRole(c.Request.Context(), id, req.PermissionID); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role_id": id, "permission_id": req.PermissionID})
}

// RemoveRolePermission handles DELETE /rbac/roles/:id/permissions/:permissionId
func (rc *RBACController) RemoveRolePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	permID, ok := uintParam(c, "permissionId")
	if !ok {
		return
	}
	if svcErr := rc.rbac.RemovePermissionFromRole(c.Request.Context(), id, permID); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUserRoles handles GET /rbac/users/:id/roles
func (rc *RBACController) ListUserRoles(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	roles, svcErr := rc.rbac.ListUserRoles(c.Request.Context(), id)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// AssignUserRole handles POST /rbac/users/:id/roles
func (rc *RBACController) AssignUserRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if svcErr := rc.rbac.AssignRoleToUser(c.Request.Context(), id, req.RoleID); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": id, "role_id": req.RoleID})
}

// RemoveUserRole handles DELETE /rbac/users/:id/roles/:roleId
func (rc *RBACController) RemoveUserRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	roleID, ok := uintParam(c, "roleId")
	if !ok {
		return
	}
	if svcErr := rc.rbac.RemoveRoleFromUser(c.Request.Context(), id, roleID); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.Status(http.StatusNoContent)
}
