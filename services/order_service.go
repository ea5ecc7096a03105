package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yashrajoria/management-backend/events"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// StockReserver is the part of the stock engine orders depend on.
type StockReserver interface {
	Reserve(ctx context.Context, cmd ReserveCommand) (*models.StockReservation, error)
	Release(ctx context.Context, reservationID uint, reason *string, actorID *uint) (*models.StockReservation, error)
	Confirm(ctx context.Context, reservationID uint, actorID *uint) (*models.StockReservation, error)
	GetReservation(ctx context.Context, id uint) (*models.StockReservation, error)
}

// OrderResponse is one page of orders.
type OrderResponse struct {
	Orders []models.Order  `json:"orders"`
	Meta   models.MetaData `json:"meta"`
}

type OrderService struct {
	orders      repository.OrderRepository
	stock       StockReserver
	idempotency repository.IdempotencyStore
	publisher   events.OrderPublisher
	logger      *zap.Logger
}

// NewOrderService wires the order workflow. idempotency and publisher may be nil.
func NewOrderService(
	orders repository.OrderRepository,
	stock StockReserver,
	idempotency repository.IdempotencyStore,
	publisher events.OrderPublisher,
	logger *zap.Logger,
) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{
		orders:      orders,
		stock:       stock,
		idempotency: idempotency,
		publisher:   publisher,
		logger:      logger,
	}
}

var errOrderNotFound = &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}

// CreateOrder reserves stock for every item and records the order. If any
// reservation fails the ones already made are released and nothing is stored.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, req *models.CreateOrderRequest, idempotencyKey string) (*models.Order, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "At least one item is required"}
	}

	idemKey := ""
	if idempotencyKey != "" {
		idemKey = strconv.FormatUint(uint64(userID), 10) + ":" + idempotencyKey
		if existing := s.replay(ctx, idemKey); existing != nil {
			return existing, nil
		}
	}

	owner := userID
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		reservation, err := s.stock.Reserve(ctx, ReserveCommand{
			ProductID:  item.ProductID,
			LocationID: item.LocationID,
			Quantity:   item.Quantity,
			OwnerID:    &owner,
		})
		if err != nil {
			s.rollbackReservations(ctx, items, userID)
			return nil, stockServiceError(err)
		}
		items = append(items, models.OrderItem{
			ProductID:     item.ProductID,
			LocationID:    item.LocationID,
			Quantity:      item.Quantity,
			ReservationID: reservation.ID,
		})
	}

	order := &models.Order{UserID: userID, Status: models.OrderCreated, Items: items}
	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("Failed to persist order", zap.Uint("user_id", userID), zap.Error(err))
		s.rollbackReservations(ctx, items, userID)
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create order"}
	}

	if idemKey != "" {
		if err := s.idempotency.Set(ctx, idemKey, strconv.FormatUint(uint64(order.ID), 10), idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Uint("order_id", order.ID), zap.Error(err))
		}
	}

	s.logger.Info("Order created", zap.Uint("order_id", order.ID), zap.Uint("user_id", userID), zap.Int("items", len(items)))
	s.publish(ctx, "order.created", order)
	return order, nil
}

// ConfirmOrder turns every item hold into a permanent stock exit. The order
// row stays locked until every hold is settled.
func (s *OrderService) ConfirmOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *ServiceError) {
	return s.transition(ctx, id, models.OrderCreated, models.OrderConfirmed, func(order *models.Order) error {
		for _, item := range order.Items {
			_, err := s.stock.Confirm(ctx, item.ReservationID, actorID)
			if err := s.settled(ctx, order.ID, item, models.ReservationConfirmed, err); err != nil {
				return err
			}
		}
		return nil
	})
}

// CancelOrder releases every hold of a created order.
func (s *OrderService) CancelOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *ServiceError) {
	reason := "order " + strconv.FormatUint(uint64(id), 10) + " cancelled"
	return s.transition(ctx, id, models.OrderCreated, models.OrderCancelled, func(order *models.Order) error {
		for _, item := range order.Items {
			_, err := s.stock.Release(ctx, item.ReservationID, &reason, actorID)
			if err := s.settled(ctx, order.ID, item, models.ReservationReleased, err); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompleteOrder marks a confirmed order as delivered.
func (s *OrderService) CompleteOrder(ctx context.Context, id uint) (*models.Order, *ServiceError) {
	return s.transition(ctx, id, models.OrderConfirmed, models.OrderCompleted, nil)
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errOrderNotFound
	}
	if err != nil {
		s.logger.Error("Failed to fetch order", zap.Uint("order_id", id), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch order"}
	}
	return order, nil
}

// ListOrders pages through orders, optionally only those of userID.
func (s *OrderService) ListOrders(ctx context.Context, userID *uint, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orders.FindAll(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to fetch orders"}
	}
	return &OrderResponse{Orders: orders, Meta: models.NewMetaData(page, limit, total)}, nil
}

// transition moves an order from one status to another under its row lock.
// apply runs while the lock is held; an error from it leaves the status as is.
func (s *OrderService) transition(
	ctx context.Context,
	id uint,
	from, to models.OrderStatus,
	apply func(order *models.Order) error,
) (*models.Order, *ServiceError) {
	order, err := s.orders.Transition(ctx, id, func(order *models.Order) (models.OrderStatus, error) {
		if order.Status != from {
			return "", &ServiceError{
				StatusCode: http.StatusConflict,
				Message:    "Order cannot move from " + string(order.Status) + " to " + string(to),
			}
		}
		if apply != nil {
			if err := apply(order); err != nil {
				return "", err
			}
		}
		return to, nil
	})
	if err != nil {
		var svcErr *ServiceError
		switch {
		case errors.As(err, &svcErr):
			return nil, svcErr
		case errors.Is(err, repository.ErrNotFound):
			return nil, errOrderNotFound
		case isStockBusinessError(err):
			return nil, stockServiceError(err)
		}
		s.logger.Error("Failed to update order status", zap.Uint("order_id", id), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to update order"}
	}

	s.logger.Info("Order status changed", zap.Uint("order_id", order.ID), zap.String("status", string(order.Status)))
	s.publish(ctx, "order."+string(order.Status), order)
	return order, nil
}

// settled interprets the result of settling one item hold. A hold that is
// already in the wanted state counts as done, so a retried transition can
// pick up where a failed one stopped. A hold settled the other way is a conflict.
func (s *OrderService) settled(ctx context.Context, orderID uint, item models.OrderItem, want models.ReservationStatus, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrReservationInactive) {
		reservation, lookupErr := s.stock.GetReservation(ctx, item.ReservationID)
		if lookupErr != nil {
			return lookupErr
		}
		if reservation.Status == want {
			return nil
		}
		err = fmt.Errorf("reservation %d is already %s: %w", item.ReservationID, reservation.Status, ErrReservationInactive)
	}
	s.logger.Error("Failed to settle order reservation",
		zap.Uint("order_id", orderID),
		zap.Uint("reservation_id", item.ReservationID),
		zap.String("want", string(want)),
		zap.Error(err),
	)
	return err
}

func (s *OrderService) rollbackReservations(ctx context.Context, items []models.OrderItem, userID uint) {
	reason := "order creation failed"
	for _, item := range items {
		if _, err := s.stock.Release(ctx, item.ReservationID, &reason, &userID); err != nil {
			s.logger.Error("Failed to release reservation after order failure",
				zap.Uint("reservation_id", item.ReservationID),
				zap.Error(err),
			)
		}
	}
}

// replay returns the order a previous request with the same key created.
func (s *OrderService) replay(ctx context.Context, key string) *models.Order {
	if s.idempotency == nil {
		return nil
	}
	val, err := s.idempotency.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if val == "" {
		return nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return nil
	}
	order, err := s.orders.FindByID(ctx, uint(id))
	if err != nil {
		return nil
	}
	return order
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	s.publisher.PublishOrderEvent(ctx, models.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Items:     order.Items,
		Timestamp: time.Now(),
	})
}

// stockServiceError converts a stock engine error into an HTTP-typed one.
func stockServiceError(err error) *ServiceError {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrStockNotFound),
		errors.Is(err, ErrReservationNotExists),
		errors.Is(err, ErrLocationNotFound):
		return &ServiceError{StatusCode: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ErrReservationInactive):
		return &ServiceError{StatusCode: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrProductInactive):
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, ErrInvalidQuantity):
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Stock operation failed"}
}
