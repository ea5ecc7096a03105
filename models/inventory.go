package models

import (
	"time"
)

// MovementType is the kind of change a stock movement records.
type MovementType string

const (
	MovementIn      MovementType = "in"
	MovementOut     MovementType = "out"
	MovementAdjust  MovementType = "adjust"
	MovementReserve MovementType = "reserve"
	MovementRelease MovementType = "release"
)

// Valid reports whether t is one of the known movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementReserve, MovementRelease:
		return true
	}
	return false
}

// ReservationStatus is the lifecycle state of a stock reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationReleased  ReservationStatus = "released"
	ReservationConfirmed ReservationStatus = "confirmed"
)

// Product is a catalog entry stock can be held against.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	SKU       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "inventory_products" }

// Location is a place stock is physically kept.
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Location) TableName() string { return "inventory_locations" }

// StockLedgerEntry holds the counters for one (product, location) pair.
// Available and Reserved never go below zero.
type StockLedgerEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:uq_stock_product_location" json:"product_id"`
	LocationID uint      `gorm:"not null;uniqueIndex:uq_stock_product_location" json:"location_id"`
	Available  int       `gorm:"not null;default:0;check:chk_stock_available_non_negative,available >= 0" json:"available"`
	Reserved   int       `gorm:"not null;default:0;check:chk_stock_reserved_non_negative,reserved >= 0" json:"reserved"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Product  *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Location *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StockLedgerEntry) TableName() string { return "inventory_stock" }

// OnHand is the total physically present: free plus held.
func (e StockLedgerEntry) OnHand() int { return e.Available + e.Reserved }

// StockMovement is an append-only audit record of one ledger change.
type StockMovement struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	StockID         uint         `gorm:"not null;index" json:"stock_id"`
	Type            MovementType `gorm:"type:varchar(20);not null" json:"type"`
	Quantity        int          `gorm:"not null;check:chk_movement_quantity_positive,quantity > 0" json:"quantity"`
	Reason          *string      `gorm:"type:varchar(255)" json:"reason,omitempty"`
	CreatedByUserID *uint        `gorm:"index" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time    `gorm:"autoCreateTime" json:"created_at"`

	Stock *StockLedgerEntry `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StockMovement) TableName() string { return "inventory_stock_movements" }

// StockReservation is a tentative hold on stock. Amount is fixed at creation.
type StockReservation struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ProductID  uint              `gorm:"not null;index" json:"product_id"`
	LocationID uint              `gorm:"not null;index" json:"location_id"`
	Amount     int               `gorm:"not null;check:chk_reservation_amount_positive,amount > 0" json:"amount"`
	UserID     *uint             `gorm:"index" json:"user_id,omitempty"`
	Status     ReservationStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Product  *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Location *Location `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StockReservation) TableName() string { return "inventory_reservations" }

// IsActive reports whether the reservation can still be released or confirmed.
func (r StockReservation) IsActive() bool { return r.Status == ReservationActive }
