package repository

import (
	"context"

	"github.com/yashrajoria/management-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RBACRepository interface {
	CreateRole(ctx context.Context, role *models.Role) error
	FindRoleByID(ctx context.Context, id uint) (*models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	UpdateRole(ctx context.Context, role *models.Role) error
	DeleteRole(ctx context.Context, id uint) error

	FindPermissionByID(ctx context.Context, id uint) (*models.Permission, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)

	HasRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error)
	AddRolePermission(ctx context.Context, roleID, permissionID uint) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error)
	ListRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error)

	HasUserRole(ctx context.Context, userID, roleID uint) (bool, error)
	AddUserRole(ctx context.Context, userID, roleID uint) error
	RemoveUserRole(ctx context.Context, userID, roleID uint) (bool, error)
	ListUserRoles(ctx context.Context, userID uint) ([]models.Role, error)

	PermissionCodesForUser(ctx context.Context, userID uint) ([]string, error)

	// Seeding helpers. Both are no-ops when the row already exists.
	EnsurePermission(ctx context.Context, perm *models.Permission) error
	EnsureRole(ctx context.Context, role *models.Role) error
}

type GormRBACRepository struct {
	db *gorm.DB
}

func NewGormRBACRepository(db *gorm.DB) RBACRepository {
	return &GormRBACRepository{db: db}
}

func (r *GormRBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *GormRBACRepository) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *GormRBACRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *GormRBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *GormRBACRepository) UpdateRole(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Model(role).Update("name", role.Name).Error
}

func (r *GormRBACRepository) DeleteRole(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Role{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRBACRepository) FindPermissionByID(ctx context.Context, id uint) (*models.Permission, error) {
	var perm models.Permission
	if err := r.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &perm, nil
}

func (r *GormRBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).Order("code ASC").Find(&perms).Error
	return perms, err
}

func (r *GormRBACRepository) HasRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRBACRepository) AddRolePermission(ctx context.Context, roleID, permissionID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
}

func (r *GormRBACRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&models.RolePermission{})
	return result.RowsAffected > 0, result.Error
}

func (r *GormRBACRepository) ListRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.code ASC").
		Find(&perms).Error
	return perms, err
}

func (r *GormRBACRepository) HasUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRBACRepository) AddUserRole(ctx context.Context, userID, roleID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
}

func (r *GormRBACRepository) RemoveUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{})
	return result.RowsAffected > 0, result.Error
}

func (r *GormRBACRepository) ListUserRoles(ctx context.Context, userID uint) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		Find(&roles).Error
	return roles, err
}

func (r *GormRBACRepository) PermissionCodesForUser(ctx context.Context, userID uint) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Distinct("permissions.code").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("permissions.code", &codes).Error
	return codes, err
}

// EnsurePermission inserts perm unless its code exists; perm.ID is loaded either way.
func (r *GormRBACRepository) EnsurePermission(ctx context.Context, perm *models.Permission) error {
	return r.db.WithContext(ctx).
		Where(models.Permission{Code: perm.Code}).
		Attrs(models.Permission{Name: perm.Name, Description: perm.Description}).
		FirstOrCreate(perm).Error
}

// EnsureRole inserts role unless its name exists; role.ID is loaded either way.
func (r *GormRBACRepository) EnsureRole(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).
		Where(models.Role{Name: role.Name}).
		Attrs(models.Role{IsSystem: role.IsSystem}).
		FirstOrCreate(role).Error
}
