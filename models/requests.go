package models

import "time"

// CreateProductRequest registers a new catalog product
type CreateProductRequest struct {
	Name string `json:"name" binding:"required,notblank,max=255"`
	SKU  string `json:"sku" binding:"required,notblank,max=100"`
}

// UpdateProductRequest renames a product and/or changes its SKU
type UpdateProductRequest struct {
	Name *string `json:"name" binding:"omitempty,notblank,max=255"`
	SKU  *string `json:"sku" binding:"omitempty,notblank,max=100"`
}

// CreateLocationRequest registers a new stock location
type CreateLocationRequest struct {
	Name string `json:"name" binding:"required,notblank,max=150"`
}

// StockMovementRequest is the body of POST /inventory/stock/in|out|adjust.
// The movement type comes from the route, not the body.
type StockMovementRequest struct {
	ProductID  uint    `json:"product_id" binding:"required"`
	LocationID uint    `json:"location_id" binding:"required"`
	Quantity   int     `json:"quantity" binding:"required,min=1"`
	Reason     *string `json:"reason" binding:"omitempty,max=255"`
}

// ProvisionStockRequest opens an empty ledger entry for a product at a location
type ProvisionStockRequest struct {
	ProductID  uint `json:"product_id" binding:"required"`
	LocationID uint `json:"location_id" binding:"required"`
}

// ReserveStockRequest places a hold on stock
type ReserveStockRequest struct {
	ProductID  uint  `json:"product_id" binding:"required"`
	LocationID uint  `json:"location_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,min=1"`
	OwnerID    *uint `json:"owner_id"`
}

// ReleaseReservationRequest returns a held amount to available stock
type ReleaseReservationRequest struct {
	ReservationID uint    `json:"reservation_id" binding:"required"`
	Reason        *string `json:"reason" binding:"omitempty,max=255"`
}

// ConfirmReservationRequest turns a hold into a permanent stock exit
type ConfirmReservationRequest struct {
	ReservationID uint `json:"reservation_id" binding:"required"`
}

// ReservedAmountResponse is returned by GET /inventory/stock/reserved/:productId
type ReservedAmountResponse struct {
	ProductID uint `json:"product_id"`
	Reserved  int  `json:"reserved"`
}

// MovementResult pairs a recorded movement with the ledger state it produced.
type MovementResult struct {
	Movement StockMovement    `json:"movement"`
	Stock    StockLedgerEntry `json:"stock"`
}

// MetaData describes one page of a paginated listing
type MetaData struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NewMetaData builds pagination metadata for a listing
func NewMetaData(page, limit int, total int64) MetaData {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return MetaData{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// MovementExport points at an uploaded CSV of the movement log.
type MovementExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}
