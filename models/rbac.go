package models

import (
	"time"
)

type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	IsSystem  bool      `gorm:"not null;default:false" json:"is_system"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description *string   `gorm:"type:varchar(250)" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type RolePermission struct {
	RoleID       uint `gorm:"primaryKey" json:"role_id"`
	PermissionID uint `gorm:"primaryKey" json:"permission_id"`

	Role       *Role       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
	Permission *Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
}

type UserRole struct {
	UserID uint `gorm:"primaryKey" json:"user_id"`
	RoleID uint `gorm:"primaryKey" json:"role_id"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Role *Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
}

// Permission codes checked by the HTTP layer.
const (
	PermProductsView       = "products:view"
	PermProductsCreate     = "products:create"
	PermProductsUpdate     = "products:update"
	PermProductsDeactivate = "products:deactivate"

	PermLocationsView   = "locations:view"
	PermLocationsCreate = "locations:create"

	PermStockView    = "stock:view"
	PermStockIn      = "stock:in"
	PermStockOut     = "stock:out"
	PermStockAdjust  = "stock:adjust"
	PermStockReserve = "stock:reserve"
	PermStockRelease = "stock:release"
	PermStockConfirm = "stock:confirm"

	PermReservationsView = "reservations:view"
	PermMovementsView    = "movements:view"

	PermOrdersView   = "orders:view"
	PermOrdersCreate = "orders:create"
	PermOrdersUpdate = "orders:update"

	PermUsersView   = "users:view"
	PermUsersUpdate = "users:update"
	PermUsersDelete = "users:delete"

	PermRolesView             = "roles:view"
	PermRolesCreate           = "roles:create"
	PermRolesUpdate           = "roles:update"
	PermRolesDelete           = "roles:delete"
	PermRolePermissionsView   = "roles:permissions:view"
	PermRolePermissionsUpdate = "roles:permissions:update"
	PermUserRolesView         = "users:roles:view"
	PermUserRolesUpdate       = "users:roles:update"
)

// System role names.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleDriver   = "driver"
	RoleClient   = "client"
)

// AllPermissions lists every permission code the service knows about.
var AllPermissions = []string{
	PermProductsView, PermProductsCreate, PermProductsUpdate, PermProductsDeactivate,
	PermLocationsView, PermLocationsCreate,
	PermStockView, PermStockIn, PermStockOut, PermStockAdjust,
	PermStockReserve, PermStockRelease, PermStockConfirm,
	PermReservationsView, PermMovementsView,
	PermOrdersView, PermOrdersCreate, PermOrdersUpdate,
	PermUsersView, PermUsersUpdate, PermUsersDelete,
	PermRolesView, PermRolesCreate, PermRolesUpdate, PermRolesDelete,
	PermRolePermissionsView, PermRolePermissionsUpdate,
	PermUserRolesView, PermUserRolesUpdate,
}

var employeePermissions = []string{
	PermProductsView, PermStockIn, PermStockOut,
	PermReservationsView, PermUsersView,
}

// SystemRoles maps each built-in role to its default permissions.
var SystemRoles = map[string][]string{
	RoleAdmin:    AllPermissions,
	RoleEmployee: employeePermissions,
	RoleDriver:   {PermProductsView, PermReservationsView},
	RoleClient:   {PermProductsView, PermReservationsView},
}

type CreateRoleRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type UpdateRoleRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type AssignPermissionRequest struct {
	PermissionID uint `json:"permission_id" binding:"required"`
}

type AssignRoleRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}
