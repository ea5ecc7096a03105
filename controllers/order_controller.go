package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/middleware"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID uint, req *models.CreateOrderRequest, idempotencyKey string) (*models.Order, *services.ServiceError)
	ConfirmOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *services.ServiceError)
	CancelOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *services.ServiceError)
	CompleteOrder(ctx context.Context, id uint) (*models.Order, *services.ServiceError)
	GetOrder(ctx context.Context, id uint) (*models.Order, *services.ServiceError)
	ListOrders(ctx context.Context, userID *uint, page, limit int) (*services.OrderResponse, *services.ServiceError)
}

// OrderController handles HTTP requests for orders
type OrderController struct {
	orders OrderService
}

func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// CreateOrder handles POST /orders. An Idempotency-Key header makes retries
// return the order the first attempt created.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, svcErr := oc.orders.CreateOrder(c.Request.Context(), userID, &req, c.GetHeader("Idempotency-Key"))
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListOrders handles GET /orders?user_id=&page=&limit=
func (oc *OrderController) ListOrders(c *gin.Context) {
	userID, ok := optionalUintQuery(c, "user_id")
	if !ok {
		return
	}
	page, limit := parsePaginationParams(c)

	resp, svcErr := oc.orders.ListOrders(c.Request.Context(), userID, page, limit)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	order, svcErr := oc.orders.GetOrder(c.Request.Context(), id)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ConfirmOrder handles POST /orders/:id/confirm
func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	oc.changeStatus(c, func(ctx context.Context, id uint, actor *uint) (*models.Order, *services.ServiceError) {
		return oc.orders.ConfirmOrder(ctx, id, actor)
	})
}

// CancelOrder handles POST /orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	oc.changeStatus(c, func(ctx context.Context, id uint, actor *uint) (*models.Order, *services.ServiceError) {
		return oc.orders.CancelOrder(ctx, id, actor)
	})
}

// CompleteOrder handles POST /orders/:id/complete
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	oc.changeStatus(c, func(ctx context.Context, id uint, _ *uint) (*models.Order, *services.ServiceError) {
		return oc.orders.CompleteOrder(ctx, id)
	})
}

func (oc *OrderController) changeStatus(c *gin.Context, fn func(context.Context, uint, *uint) (*models.Order, *services.ServiceError)) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var actor *uint
	if userID, ok := middleware.CurrentUserID(c); ok {
		actor = &userID
	}

	order, svcErr := fn(c.Request.Context(), id, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, order)
}
