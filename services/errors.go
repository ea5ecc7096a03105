package services

import (
	"errors"
	"fmt"
)

// Stock and catalog errors. All are business failures: the surrounding
// transaction has been rolled back and nothing was written.
var (
	ErrStockNotFound           = errors.New("stock not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrReservationNotExists    = errors.New("reservation does not exist")
	ErrReservationInactive     = errors.New("reservation is not active")
	ErrProductAlreadyExists    = errors.New("product already exists")
	ErrProductSkuAlreadyExists = errors.New("product sku already exists")
	ErrProductAlreadyInactive  = errors.New("product already inactive")
	ErrProductNotFound         = errors.New("product not found")
	ErrProductInactive         = errors.New("product is inactive")
	ErrLocationNotFound        = errors.New("location not found")
	ErrLocationAlreadyExists   = errors.New("location already exists")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInvalidMovementType     = errors.New("invalid stock movement type")

	// ErrInvalidRelease means a reservation's amount exceeds the ledger's
	// reserved counter. It matches ErrInsufficientStock under errors.Is.
	ErrInvalidRelease = fmt.Errorf("%w: reserved amount is lower than the reservation", ErrInsufficientStock)
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }
