package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/middleware"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
)

// StockOperations is what the inventory endpoints need from the stock engine.
type StockOperations interface {
	ApplyMovement(ctx context.Context, cmd services.MovementCommand) (*models.MovementResult, error)
	Reserve(ctx context.Context, cmd services.ReserveCommand) (*models.StockReservation, error)
	Release(ctx context.Context, reservationID uint, reason *string, actorID *uint) (*models.StockReservation, error)
	Confirm(ctx context.Context, reservationID uint, actorID *uint) (*models.StockReservation, error)
	GetReservedAmount(ctx context.Context, productID uint) (int, error)
	GetStock(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error)
	ProvisionStock(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error)
	GetReservation(ctx context.Context, id uint) (*models.StockReservation, error)
	ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]models.StockReservation, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, int64, error)
}

// MovementExporter uploads the movement log and returns where to fetch it.
type MovementExporter interface {
	Export(ctx context.Context, productID, locationID *uint) (*models.MovementExport, error)
}

// InventoryController handles HTTP requests for stock levels and reservations
type InventoryController struct {
	stock    StockOperations
	exporter MovementExporter
	logger   *zap.Logger
}

// NewInventoryController creates a new InventoryController. exporter may be
// nil when no export bucket is configured.
func NewInventoryController(stock StockOperations, exporter MovementExporter, logger *zap.Logger) *InventoryController {
	return &InventoryController{stock: stock, exporter: exporter, logger: logger}
}

// StockIn handles POST /inventory/stock/in
func (ic *InventoryController) StockIn(c *gin.Context) {
	ic.applyMovement(c, models.MovementIn)
}

// StockOut handles POST /inventory/stock/out
func (ic *InventoryController) StockOut(c *gin.Context) {
	ic.applyMovement(c, models.MovementOut)
}

// StockAdjust handles POST /inventory/stock/adjust
func (ic *InventoryController) StockAdjust(c *gin.Context) {
	ic.applyMovement(c, models.MovementAdjust)
}

func (ic *InventoryController) applyMovement(c *gin.Context, movementType models.MovementType) {
	var req models.StockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cmd := services.MovementCommand{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		Type:       movementType,
		Reason:     req.Reason,
	}
	if userID, ok := middleware.CurrentUserID(c); ok {
		cmd.ActorID = &userID
	}

	result, err := ic.stock.ApplyMovement(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, ic.logger, "Failed to apply stock movement", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ProvisionStock handles POST /inventory/stock/provision. Provisioning an
// existing pair returns its current entry.
func (ic *InventoryController) ProvisionStock(c *gin.Context) {
	var req models.ProvisionStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := ic.stock.ProvisionStock(c.Request.Context(), req.ProductID, req.LocationID)
	if err != nil {
		respondError(c, ic.logger, "Failed to provision stock", err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Reserve handles POST /inventory/stock/reserve.
// The hold belongs to owner_id when given, otherwise to the caller.
func (ic *InventoryController) Reserve(c *gin.Context) {
	var req models.ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	owner := req.OwnerID
	if owner == nil {
		if userID, ok := middleware.CurrentUserID(c); ok {
			owner = &userID
		}
	}

	reservation, err := ic.stock.Reserve(c.Request.Context(), services.ReserveCommand{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		OwnerID:    owner,
	})
	if err != nil {
		respondError(c, ic.logger, "Failed to reserve stock", err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// Release handles POST /inventory/stock/release
func (ic *InventoryController) Release(c *gin.Context) {
	var req models.ReleaseReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reservation, err := ic.stock.Release(c.Request.Context(), req.ReservationID, req.Reason, nil)
	if err != nil {
		respondError(c, ic.logger, "Failed to release reservation", err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// Confirm handles POST /inventory/stock/confirm
func (ic *InventoryController) Confirm(c *gin.Context) {
	var req models.ConfirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reservation, err := ic.stock.Confirm(c.Request.Context(), req.ReservationID, nil)
	if err != nil {
		respondError(c, ic.logger, "Failed to confirm reservation", err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// GetStock handles GET /inventory/stock?product_id=&location_id=
func (ic *InventoryController) GetStock(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
	if err != nil || productID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	locationID, err := strconv.ParseUint(c.Query("location_id"), 10, 64)
	if err != nil || locationID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_id is required"})
		return
	}

	entry, err := ic.stock.GetStock(c.Request.Context(), uint(productID), uint(locationID))
	if err != nil {
		respondError(c, ic.logger, "Failed to fetch stock", err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// GetReservedAmount handles GET /inventory/stock/reserved/:productId
func (ic *InventoryController) GetReservedAmount(c *gin.Context) {
	productID, ok := uintParam(c, "productId")
	if !ok {
		return
	}

	reserved, err := ic.stock.GetReservedAmount(c.Request.Context(), productID)
	if err != nil {
		respondError(c, ic.logger, "Failed to fetch reserved amount", err)
		return
	}

	c.JSON(http.StatusOK, models.ReservedAmountResponse{ProductID: productID, Reserved: reserved})
}

// ListMovements handles GET /inventory/movements
func (ic *InventoryController) ListMovements(c *gin.Context) {
	productID, ok := optionalUintQuery(c, "product_id")
	if !ok {
		return
	}
	locationID, ok := optionalUintQuery(c, "location_id")
	if !ok {
		return
	}
	page, limit := parsePaginationParams(c)

	movements, total, err := ic.stock.ListMovements(c.Request.Context(), repository.MovementFilter{
		ProductID:  productID,
		LocationID: locationID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, ic.logger, "Failed to fetch movements", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movements": movements,
		"meta":      models.NewMetaData(page, limit, total),
	})
}

// ExportMovements handles POST /inventory/movements/export
func (ic *InventoryController) ExportMovements(c *gin.Context) {
	if ic.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Movement export is not configured"})
		return
	}
	productID, ok := optionalUintQuery(c, "product_id")
	if !ok {
		return
	}
	locationID, ok := optionalUintQuery(c, "location_id")
	if !ok {
		return
	}

	export, err := ic.exporter.Export(c.Request.Context(), productID, locationID)
	if err != nil {
		respondError(c, ic.logger, "Failed to export movements", err)
		return
	}

	c.JSON(http.StatusCreated, export)
}

// ListReservations handles GET /inventory/reservations
func (ic *InventoryController) ListReservations(c *gin.Context) {
	productID, ok := optionalUintQuery(c, "product_id")
	if !ok {
		return
	}
	userID, ok := optionalUintQuery(c, "user_id")
	if !ok {
		return
	}
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "true"))

	reservations, err := ic.stock.ListReservations(c.Request.Context(), repository.ReservationFilter{
		ProductID:  productID,
		UserID:     userID,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		respondError(c, ic.logger, "Failed to fetch reservations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// GetReservation handles GET /inventory/reservations/:id
func (ic *InventoryController) GetReservation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	reservation, err := ic.stock.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, ic.logger, "Failed to fetch reservation", err)
		return
	}

	c.JSON(http.StatusOK, reservation)
}
