package services

import (
	"context"
	"errors"
	"time"

	"github.com/yashrajoria/management-backend/events"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
)

const confirmReason = "reservation confirmed"

// MovementCommand asks the engine to apply one stock movement.
type MovementCommand struct {
	ProductID  uint
	LocationID uint
	Quantity   int
	Type       models.MovementType
	Reason     *string
	ActorID    *uint
}

// ReserveCommand asks the engine to hold Quantity units for OwnerID.
type ReserveCommand struct {
	ProductID  uint
	LocationID uint
	Quantity   int
	OwnerID    *uint
}

// StockEngine is the only writer of ledger entries, movements and
// reservations. Every mutation runs in one transaction with the ledger row
// locked for the whole read-validate-write sequence.
type StockEngine struct {
	store     repository.StockStore
	products  repository.ProductRepository
	locations repository.LocationRepository
	publisher events.StockPublisher
	logger    *zap.Logger
}

func NewStockEngine(
	store repository.StockStore,
	products repository.ProductRepository,
	locations repository.LocationRepository,
	publisher events.StockPublisher,
	logger *zap.Logger,
) *StockEngine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &StockEngine{
		store:     store,
		products:  products,
		locations: locations,
		publisher: publisher,
		logger:    logger,
	}
}

// ApplyMovement applies an IN, OUT, ADJUST, RESERVE or RELEASE movement to
// the ledger entry of (ProductID, LocationID) and records it. RESERVE and
// RELEASE here only move counters; they never touch reservation records.
//
// The first IN for a pair creates its ledger entry. Every other type
// requires the entry to exist.
func (e *StockEngine) ApplyMovement(ctx context.Context, cmd MovementCommand) (*models.MovementResult, error) {
	if cmd.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !cmd.Type.Valid() {
		return nil, ErrInvalidMovementType
	}
	if err := e.requireActiveProduct(ctx, cmd.ProductID); err != nil {
		return nil, err
	}
	if cmd.Type == models.MovementIn {
		if err := e.requireLocation(ctx, cmd.LocationID); err != nil {
			return nil, err
		}
	}

	var result models.MovementResult
	err := e.store.WithinTx(ctx, func(tx repository.StockTx) error {
		if cmd.Type == models.MovementIn {
			if err := tx.EnsureLedger(ctx, cmd.ProductID, cmd.LocationID); err != nil {
				return err
			}
		}

		entry, err := lockLedger(ctx, tx, cmd.ProductID, cmd.LocationID)
		if err != nil {
			return err
		}
		if err := applyToLedger(entry, cmd.Type, cmd.Quantity); err != nil {
			return err
		}
		if err := tx.SaveLedger(ctx, entry); err != nil {
			return err
		}

		movement := &models.StockMovement{
			StockID:         entry.ID,
			Type:            cmd.Type,
			Quantity:        cmd.Quantity,
			Reason:          cmd.Reason,
			CreatedByUserID: cmd.ActorID,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return err
		}

		result = models.MovementResult{Movement: *movement, Stock: *entry}
		return nil
	})
	if err != nil {
		e.logFailure("Stock movement rejected", err,
			zap.Uint("product_id", cmd.ProductID),
			zap.Uint("location_id", cmd.LocationID),
			zap.String("type", string(cmd.Type)),
			zap.Int("quantity", cmd.Quantity),
		)
		return nil, err
	}

	e.logger.Info("Stock movement applied",
		zap.Uint("movement_id", result.Movement.ID),
		zap.Uint("product_id", cmd.ProductID),
		zap.Uint("location_id", cmd.LocationID),
		zap.String("type", string(cmd.Type)),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("available", result.Stock.Available),
		zap.Int("reserved", result.Stock.Reserved),
	)
	e.publisher.PublishStockEvent(ctx, models.StockEvent{
		Type:       "stock.movement",
		ProductID:  cmd.ProductID,
		LocationID: cmd.LocationID,
		Quantity:   cmd.Quantity,
		Movement:   cmd.Type,
		Available:  result.Stock.Available,
		Reserved:   result.Stock.Reserved,
		ActorID:    cmd.ActorID,
		Timestamp:  time.Now(),
	})
	return &result, nil
}

// Reserve moves Quantity from available to reserved and records an ACTIVE
// reservation plus a RESERVE movement, all under one lock.
func (e *StockEngine) Reserve(ctx context.Context, cmd ReserveCommand) (*models.StockReservation, error) {
	if cmd.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := e.requireActiveProduct(ctx, cmd.ProductID); err != nil {
		return nil, err
	}

	var reservation models.StockReservation
	var ledger models.StockLedgerEntry
	err := e.store.WithinTx(ctx, func(tx repository.StockTx) error {
		entry, err := lockLedger(ctx, tx, cmd.ProductID, cmd.LocationID)
		if err != nil {
			return err
		}
		if err := applyToLedger(entry, models.MovementReserve, cmd.Quantity); err != nil {
			return err
		}
		if err := tx.SaveLedger(ctx, entry); err != nil {
			return err
		}

		reservation = models.StockReservation{
			ProductID:  cmd.ProductID,
			LocationID: cmd.LocationID,
			Amount:     cmd.Quantity,
			UserID:     cmd.OwnerID,
			Status:     models.ReservationActive,
		}
		if err := tx.CreateReservation(ctx, &reservation); err != nil {
			return err
		}

		if err := tx.CreateMovement(ctx, &models.StockMovement{
			StockID:         entry.ID,
			Type:            models.MovementReserve,
			Quantity:        cmd.Quantity,
			CreatedByUserID: cmd.OwnerID,
		}); err != nil {
			return err
		}
		ledger = *entry
		return nil
	})
	if err != nil {
		e.logFailure("Reservation rejected", err,
			zap.Uint("product_id", cmd.ProductID),
			zap.Uint("location_id", cmd.LocationID),
			zap.Int("quantity", cmd.Quantity),
		)
		return nil, err
	}

	e.logger.Info("Stock reserved",
		zap.Uint("reservation_id", reservation.ID),
		zap.Uint("product_id", cmd.ProductID),
		zap.Uint("location_id", cmd.LocationID),
		zap.Int("amount", cmd.Quantity),
	)
	e.publishReservation(ctx, "stock.reserved", &reservation, &ledger, cmd.OwnerID)
	return &reservation, nil
}

// Release returns an ACTIVE reservation's amount to available stock.
func (e *StockEngine) Release(ctx context.Context, reservationID uint, reason *string, actorID *uint) (*models.StockReservation, error) {
	return e.settle(ctx, reservationID, models.ReservationReleased, reason, actorID)
}

// Confirm makes an ACTIVE reservation's amount leave stock permanently.
// Available is untouched: it was already decremented by Reserve.
func (e *StockEngine) Confirm(ctx context.Context, reservationID uint, actorID *uint) (*models.StockReservation, error) {
	reason := confirmReason
	return e.settle(ctx, reservationID, models.ReservationConfirmed, &reason, actorID)
}

// settle moves a reservation to a terminal status. The reservation row is
// locked before the ledger row; every path taking both locks uses this order.
func (e *StockEngine) settle(
	ctx context.Context,
	reservationID uint,
	target models.ReservationStatus,
	reason *string,
	actorID *uint,
) (*models.StockReservation, error) {
	var reservation *models.StockReservation
	var ledger models.StockLedgerEntry
	err := e.store.WithinTx(ctx, func(tx repository.StockTx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReservationNotExists
		}
		if err != nil {
			return err
		}
		if !r.IsActive() {
			return ErrReservationInactive
		}

		entry, err := lockLedger(ctx, tx, r.ProductID, r.LocationID)
		if err != nil {
			return err
		}
		if entry.Reserved < r.Amount {
			return ErrInvalidRelease
		}

		movementType := models.MovementRelease
		entry.Reserved -= r.Amount
		if target == models.ReservationReleased {
			entry.Available += r.Amount
		} else {
			movementType = models.MovementOut
		}
		if err := tx.SaveLedger(ctx, entry); err != nil {
			return err
		}

		r.Status = target
		if err := tx.SaveReservationStatus(ctx, r); err != nil {
			return err
		}

		actor := actorID
		if actor == nil {
			actor = r.UserID
		}
		if err := tx.CreateMovement(ctx, &models.StockMovement{
			StockID:         entry.ID,
			Type:            movementType,
			Quantity:        r.Amount,
			Reason:          reason,
			CreatedByUserID: actor,
		}); err != nil {
			return err
		}

		reservation = r
		ledger = *entry
		return nil
	})
	if err != nil {
		e.logFailure("Reservation settlement rejected", err,
			zap.Uint("reservation_id", reservationID),
			zap.String("target", string(target)),
		)
		return nil, err
	}

	e.logger.Info("Reservation settled",
		zap.Uint("reservation_id", reservation.ID),
		zap.String("status", string(reservation.Status)),
		zap.Int("amount", reservation.Amount),
	)
	eventType := "stock.released"
	if target == models.ReservationConfirmed {
		eventType = "stock.confirmed"
	}
	e.publishReservation(ctx, eventType, reservation, &ledger, actorID)
	return reservation, nil
}

// ProvisionStock creates an empty ledger entry for the pair if none exists
// and returns the current entry.
func (e *StockEngine) ProvisionStock(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	if err := e.requireActiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := e.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}

	var entry *models.StockLedgerEntry
	err := e.store.WithinTx(ctx, func(tx repository.StockTx) error {
		if err := tx.EnsureLedger(ctx, productID, locationID); err != nil {
			return err
		}
		var err error
		entry, err = lockLedger(ctx, tx, productID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetReservedAmount sums the reserved counter over every location of the product.
func (e *StockEngine) GetReservedAmount(ctx context.Context, productID uint) (int, error) {
	total, found, err := e.store.SumReserved(ctx, productID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrStockNotFound
	}
	return total, nil
}

// ListReservations reads without locking; counts may be slightly stale.
func (e *StockEngine) ListReservations(ctx context.Context, filter repository.ReservationFilter) ([]models.StockReservation, error) {
	return e.store.ListReservations(ctx, filter)
}

func (e *StockEngine) GetReservation(ctx context.Context, id uint) (*models.StockReservation, error) {
	r, err := e.store.FindReservation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotExists
	}
	return r, err
}

func (e *StockEngine) GetStock(ctx context.Context, productID, locationID uint) (*models.StockLedgerEntry, error) {
	entry, err := e.store.FindLedger(ctx, productID, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStockNotFound
	}
	return entry, err
}

func (e *StockEngine) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]models.StockMovement, int64, error) {
	return e.store.ListMovements(ctx, filter)
}

// applyToLedger mutates entry for one movement, refusing any change that
// would drive a counter negative.
func applyToLedger(entry *models.StockLedgerEntry, t models.MovementType, qty int) error {
	switch t {
	case models.MovementIn:
		entry.Available += qty
	case models.MovementOut:
		if entry.Available < qty {
			return ErrInsufficientStock
		}
		entry.Available -= qty
	case models.MovementReserve:
		if entry.Available < qty {
			return ErrInsufficientStock
		}
		entry.Available -= qty
		entry.Reserved += qty
	case models.MovementRelease:
		if entry.Reserved < qty {
			return ErrInsufficientStock
		}
		entry.Reserved -= qty
		entry.Available += qty
	case models.MovementAdjust:
		entry.Available = qty
		entry.Reserved = 0
	default:
		return ErrInvalidMovementType
	}
	return nil
}

func lockLedger(ctx context.Context, tx repository.StockTx, productID, locationID uint) (*models.StockLedgerEntry, error) {
	entry, err := tx.LockLedger(ctx, productID, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStockNotFound
	}
	return entry, err
}

// requireActiveProduct reads the product outside the stock transaction. A
// deactivation racing a movement may let that one movement through.
func (e *StockEngine) requireActiveProduct(ctx context.Context, productID uint) error {
	product, err := e.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if !product.IsActive {
		return ErrProductInactive
	}
	return nil
}

func (e *StockEngine) requireLocation(ctx context.Context, locationID uint) error {
	_, err := e.locations.FindByID(ctx, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLocationNotFound
	}
	return err
}

func (e *StockEngine) publishReservation(
	ctx context.Context,
	eventType string,
	r *models.StockReservation,
	ledger *models.StockLedgerEntry,
	actorID *uint,
) {
	id := r.ID
	e.publisher.PublishStockEvent(ctx, models.StockEvent{
		Type:          eventType,
		ProductID:     r.ProductID,
		LocationID:    r.LocationID,
		Quantity:      r.Amount,
		ReservationID: &id,
		Available:     ledger.Available,
		Reserved:      ledger.Reserved,
		ActorID:       actorID,
		Timestamp:     time.Now(),
	})
}

// logFailure logs business rejections at info and anything else at error.
func (e *StockEngine) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if isStockBusinessError(err) {
		e.logger.Info(msg, fields...)
		return
	}
	e.logger.Error(msg, fields...)
}

func isStockBusinessError(err error) bool {
	for _, target := range []error{
		ErrStockNotFound, ErrInsufficientStock, ErrReservationNotExists,
		ErrReservationInactive, ErrProductNotFound, ErrProductInactive,
		ErrLocationNotFound, ErrInvalidQuantity, ErrInvalidMovementType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
