package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/controllers"
	"github.com/yashrajoria/management-backend/middleware"
	"github.com/yashrajoria/management-backend/models"
	"go.uber.org/zap"
)

// Handlers groups every controller the router exposes.
type Handlers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	RBAC      *controllers.RBACController
	Catalog   *controllers.CatalogController
	Inventory *controllers.InventoryController
	Orders    *controllers.OrderController
}

// RegisterRoutes sets up all routes. Everything except login, refresh,
// logout, password reset, sign-up and /health requires a bearer token.
func RegisterRoutes(
	r *gin.Engine,
	h Handlers,
	auth middleware.Authenticator,
	checker middleware.PermissionChecker,
	logger *zap.Logger,
) {
	perm := func(code string) gin.HandlerFunc {
		return middleware.RequirePermission(checker, logger, code)
	}
	authed := middleware.AuthMiddleware(auth)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Public
	authGroup := r.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)
	authGroup.POST("/change-password", authed, h.Auth.ChangePassword)

	r.POST("/users", h.Users.Register)

	users := r.Group("/users", authed)
	users.GET("/me", h.Users.Me)
	users.PUT("/me", h.Users.UpdateMe)
	users.GET("", perm(models.PermUsersView), h.Users.ListUsers)
	users.GET("/:id", perm(models.PermUsersView), h.Users.GetUser)
	users.PUT("/:id", perm(models.PermUsersUpdate), h.Users.UpdateUser)
	users.POST("/:id/disable", perm(models.PermUsersUpdate), h.Users.DisableUser)
	users.POST("/:id/enable", perm(models.PermUsersUpdate), h.Users.EnableUser)
	users.DELETE("/:id", perm(models.PermUsersDelete), h.Users.DeleteUser)

	rbac := r.Group("/rbac", authed)
	rbac.GET("/roles", perm(models.PermRolesView), h.RBAC.ListRoles)
	rbac.POST("/roles", perm(models.PermRolesCreate), h.RBAC.CreateRole)
	rbac.PUT("/roles/:id", perm(models.PermRolesUpdate), h.RBAC.UpdateRole)
	rbac.DELETE("/roles/:id", perm(models.PermRolesDelete), h.RBAC.DeleteRole)
	rbac.GET("/permissions", perm(models.PermRolesView), h.RBAC.ListPermissions)
	rbac.GET("/roles/:id/permissions", perm(models.PermRolePermissionsView), h.RBAC.ListRolePermissions)
	rbac.POST("/roles/:id/permissions", perm(models.PermRolePermissionsUpdate), h.RBAC.AddRolePermission)
	rbac.DELETE("/roles/:id/permissions/:permissionId", perm(models.PermRolePermissionsUpdate), h.RBAC.RemoveRolePermission)
	rbac.GET("/users/:id/roles", perm(models.PermUserRolesView), h.RBAC.ListUserRoles)
	rbac.POST("/users/:id/roles", perm(models.PermUserRolesUpdate), h.RBAC.AssignUserRole)
	rbac.DELETE("/users/:id/roles/:roleId", perm(models.PermUserRolesUpdate), h.RBAC.RemoveUserRole)

	inv := r.Group("/inventory", authed)
	inv.GET("/products", perm(models.PermProductsView), h.Catalog.ListProducts)
	inv.GET("/products/:id", perm(models.PermProductsView), h.Catalog.GetProduct)
	inv.POST("/products", perm(models.PermProductsCreate), h.Catalog.CreateProduct)
	inv.PATCH("/products/:id", perm(models.PermProductsUpdate), h.Catalog.UpdateProduct)
	inv.DELETE("/products/:id", perm(models.PermProductsDeactivate), h.Catalog.DeactivateProduct)
	inv.GET("/locations", perm(models.PermLocationsView), h.Catalog.ListLocations)
	inv.POST("/locations", perm(models.PermLocationsCreate), h.Catalog.CreateLocation)

	inv.GET("/stock", perm(models.PermStockView), h.Inventory.GetStock)
	inv.GET("/stock/reserved/:productId", perm(models.PermStockView), h.Inventory.GetReservedAmount)
	inv.POST("/stock/provision", perm(models.PermStockIn), h.Inventory.ProvisionStock)
	inv.POST("/stock/in", perm(models.PermStockIn), h.Inventory.StockIn)
	inv.POST("/stock/out", perm(models.PermStockOut), h.Inventory.StockOut)
	inv.POST("/stock/adjust", perm(models.PermStockAdjust), h.Inventory.StockAdjust)
	inv.POST("/stock/reserve", perm(models.PermStockReserve), h.Inventory.Reserve)
	inv.POST("/stock/release", perm(models.PermStockRelease), h.Inventory.Release)
	inv.POST("/stock/confirm", perm(models.PermStockConfirm), h.Inventory.Confirm)

	inv.GET("/movements", perm(models.PermMovementsView), h.Inventory.ListMovements)
	inv.POST("/movements/export", perm(models.PermMovementsView), h.Inventory.ExportMovements)
	inv.GET("/reservations", perm(models.PermReservationsView), h.Inventory.ListReservations)
	inv.GET("/reservations/:id", perm(models.PermReservationsView), h.Inventory.GetReservation)

	orders := r.Group("/orders", authed)
	orders.GET("", perm(models.PermOrdersView), h.Orders.ListOrders)
	orders.POST("", perm(models.PermOrdersCreate), h.Orders.CreateOrder)
	orders.GET("/:id", perm(models.PermOrdersView), h.Orders.GetOrder)
	orders.POST("/:id/confirm", perm(models.PermOrdersUpdate), h.Orders.ConfirmOrder)
	orders.POST("/:id/cancel", perm(models.PermOrdersUpdate), h.Orders.CancelOrder)
	orders.POST("/:id/complete", perm(models.PermOrdersUpdate), h.Orders.CompleteOrder)
}
