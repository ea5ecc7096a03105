package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PermissionChecker answers whether a user holds a permission code.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uint, code string) (bool, error)
}

type RBACService struct {
	repo   repository.RBACRepository
	users  repository.UserRepository
	cache  repository.PermissionCache
	logger *zap.Logger
}

// NewRBACService builds the service. cache may be nil, in which case every
// check reads the database.
func NewRBACService(repo repository.RBACRepository, users repository.UserRepository, cache repository.PermissionCache, logger *zap.Logger) *RBACService {
	return &RBACService{repo: repo, users: users, cache: cache, logger: logger}
}

var (
	errRoleNotFound       = &ServiceError{StatusCode: http.StatusNotFound, Message: "Role not found"}
	errPermissionNotFound = &ServiceError{StatusCode: http.StatusNotFound, Message: "Permission not found"}
	errRoleExists         = &ServiceError{StatusCode: http.StatusConflict, Message: "Role already exists"}
)

// HasPermission reports whether any of the user's roles grants code.
// Inactive or unknown users hold nothing.
func (s *RBACService) HasPermission(ctx context.Context, userID uint, code string) (bool, error) {
	codes, err := s.PermissionsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// PermissionsForUser returns the user's effective permission codes, served
// from the cache when possible.
func (s *RBACService) PermissionsForUser(ctx context.Context, userID uint) ([]string, error) {
	if s.cache != nil {
		codes, found, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("Permission cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		} else if found {
			return codes, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	codes, err := s.repo.PermissionCodesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, codes); err != nil {
			s.logger.Warn("Permission cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return codes, nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, *ServiceError) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, s.internal("Failed to list roles", err)
	}
	return roles, nil
}

func (s *RBACService) CreateRole(ctx context.Context, req *models.CreateRoleRequest) (*models.Role, *ServiceError) {
	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.FindRoleByName(ctx, name); err == nil {
		return nil, errRoleExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.internal("Failed to create role", err)
	}

	role := &models.Role{Name: name}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errRoleExists
		}
		return nil, s.internal("Failed to create role", err)
	}
	s.logger.Info("Role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return role, nil
}

func (s *RBACService) UpdateRole(ctx context.Context, id uint, req *models.UpdateRoleRequest) (*models.Role, *ServiceError) {
	role, svcErr := s.findRole(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	name := strings.TrimSpace(req.Name)
	if name == role.Name {
		return role, nil
	}
	if role.IsSystem {
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: "System roles cannot be renamed"}
	}
	if existing, err := s.repo.FindRoleByName(ctx, name); err == nil && existing.ID != role.ID {
		return nil, errRoleExists
	}

	role.Name = name
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errRoleExists
		}
		return nil, s.internal("Failed to update role", err)
	}
	return role, nil
}

func (s *RBACService) DeleteRole(ctx context.Context, id uint) *ServiceError {
	role, svcErr := s.findRole(ctx, id)
	if svcErr != nil {
		return svcErr
	}
	if role.IsSystem {
		return &ServiceError{StatusCode: http.StatusConflict, Message: "System roles cannot be deleted"}
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errRoleNotFound
		}
		return s.internal("Failed to delete role", err)
	}
	s.invalidateAll(ctx)
	s.logger.Info("Role deleted", zap.Uint("role_id", id))
	return nil
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]models.Permission, *ServiceError) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, s.internal("Failed to list permissions", err)
	}
	return perms, nil
}

func (s *RBACService) ListRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, *ServiceError) {
	if _, svcErr := s.findRole(ctx, roleID); svcErr != nil {
		return nil, svcErr
	}
	perms, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, s.internal("Failed to list role permissions", err)
	}
	return perms, nil
}

func (s *RBACService) AddPermissionToRole(ctx context.Context, roleID, permissionID uint) *ServiceError {
	if _, svcErr := s.findRole(ctx, roleID); svcErr != nil {
		return svcErr
	}
	if _, err := s.repo.FindPermissionByID(ctx, permissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errPermissionNotFound
		}
		return s.internal("Failed to load permission", err)
	}

	has, err := s.repo.HasRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return s.internal("Failed to assign permission", err)
	}
	if has {
		return &ServiceError{StatusCode: http.StatusConflict, Message: "Role already has this permission"}
	}
	if err := s.repo.AddRolePermission(ctx, roleID, permissionID); err != nil {
		return s.internal("Failed to assign permission", err)
	}
	s.invalidateAll(ctx)
	return nil
}

func (s *RBACService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uint) *ServiceError {
	removed, err := s.repo.RemoveRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return s.internal("Failed to remove permission", err)
	}
	if !removed {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "Role does not have this permission"}
	}
	s.invalidateAll(ctx)
	return nil
}

func (s *RBACService) ListUserRoles(ctx context.Context, userID uint) ([]models.Role, *ServiceError) {
	if svcErr := s.requireUser(ctx, userID); svcErr != nil {
		return nil, svcErr
	}
	roles, err := s.repo.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, s.internal("Failed to list user roles", err)
	}
	return roles, nil
}

func (s *RBACService) AssignRoleToUser(ctx context.Context, userID, roleID uint) *ServiceError {
	if svcErr := s.requireUser(ctx, userID); svcErr != nil {
		return svcErr
	}
	if _, svcErr := s.findRole(ctx, roleID); svcErr != nil {
		return svcErr
	}

	has, err := s.repo.HasUserRole(ctx, userID, roleID)
	if err != nil {
		return s.internal("Failed to assign role", err)
	}
	if has {
		return &ServiceError{StatusCode: http.StatusConflict, Message: "User already has this role"}
	}
	if err := s.repo.AddUserRole(ctx, userID, roleID); err != nil {
		return s.internal("Failed to assign role", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *RBACService) RemoveRoleFromUser(ctx context.Context, userID, roleID uint) *ServiceError {
	removed, err := s.repo.RemoveUserRole(ctx, userID, roleID)
	if err != nil {
		return s.internal("Failed to remove role", err)
	}
	if !removed {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "User does not have this role"}
	}
	s.invalidate(ctx, userID)
	return nil
}

// Seed creates every known permission and the system roles. Admin is
// always topped up with the full permission set; the other system roles
// get their defaults only when first created, so later edits survive.
func (s *RBACService) Seed(ctx context.Context) error {
	permIDs := make(map[string]uint, len(models.AllPermissions))
	for _, code := range models.AllPermissions {
		perm := &models.Permission{Code: code, Name: permissionName(code)}
		if err := s.repo.EnsurePermission(ctx, perm); err != nil {
			return err
		}
		permIDs[code] = perm.ID
	}

	for name, codes := range models.SystemRoles {
		_, err := s.repo.FindRoleByName(ctx, name)
		created := errors.Is(err, repository.ErrNotFound)
		if err != nil && !created {
			return err
		}

		role := &models.Role{Name: name, IsSystem: true}
		if err := s.repo.EnsureRole(ctx, role); err != nil {
			return err
		}
		if !created && name != models.RoleAdmin {
			continue
		}
		for _, code := range codes {
			if err := s.repo.AddRolePermission(ctx, role.ID, permIDs[code]); err != nil {
				return err
			}
		}
	}

	s.invalidateAll(ctx)
	s.logger.Info("RBAC seed complete", zap.Int("permissions", len(permIDs)), zap.Int("roles", len(models.SystemRoles)))
	return nil
}

func (s *RBACService) findRole(ctx context.Context, id uint) (*models.Role, *ServiceError) {
	role, err := s.repo.FindRoleByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errRoleNotFound
	}
	if err != nil {
		return nil, s.internal("Failed to load role", err)
	}
	return role, nil
}

func (s *RBACService) requireUser(ctx context.Context, userID uint) *ServiceError {
	_, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return errUserNotFound
	}
	if err != nil {
		return s.internal("Failed to load user", err)
	}
	return nil
}

func (s *RBACService) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate permission cache", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *RBACService) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("Failed to flush permission cache", zap.Error(err))
	}
}

func (s *RBACService) internal(msg string, err error) *ServiceError {
	s.logger.Error(msg, zap.Error(err))
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg}
}

// permissionName turns "users:roles:view" into "Users roles view".
func permissionName(code string) string {
	name := strings.ReplaceAll(code, ":", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
