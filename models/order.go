package models

import (
	"time"
)

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
	OrderCompleted OrderStatus = "completed"
)

type Order struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is one line of an order together with the stock hold backing it.
type OrderItem struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	OrderID       uint `gorm:"not null;index" json:"order_id"`
	ProductID     uint `gorm:"not null;index" json:"product_id"`
	LocationID    uint `gorm:"not null" json:"location_id"`
	Quantity      int  `gorm:"not null;check:chk_order_item_quantity_positive,quantity > 0" json:"quantity"`
	ReservationID uint `gorm:"not null;index" json:"reservation_id"`
}

type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderItem struct {
	ProductID  uint `json:"product_id" binding:"required"`
	LocationID uint `json:"location_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1"`
}

// OrderEvent is published whenever an order changes state.
type OrderEvent struct {
	Type      string      `json:"type"`
	OrderID   uint        `json:"order_id"`
	UserID    uint        `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PaymentEvent arrives from the payment provider's queue.
type PaymentEvent struct {
	Type      string    `json:"type"` // "payment_succeeded" | "payment_failed"
	OrderID   uint      `json:"order_id"`
	PaymentID string    `json:"payment_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// StockEvent is published after every committed stock mutation.
type StockEvent struct {
	Type          string       `json:"type"`
	ProductID     uint         `json:"product_id"`
	LocationID    uint         `json:"location_id"`
	Quantity      int          `json:"quantity"`
	Movement      MovementType `json:"movement,omitempty"`
	ReservationID *uint        `json:"reservation_id,omitempty"`
	Available     int          `json:"available"`
	Reserved      int          `json:"reserved"`
	ActorID       *uint        `json:"actor_id,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
