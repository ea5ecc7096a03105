package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yashrajoria/management-backend/models"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
)

// Poller delivers queue messages to a handler until ctx is cancelled.
type Poller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// OrderTransitions is the part of the order workflow payment events drive.
type OrderTransitions interface {
	ConfirmOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *services.ServiceError)
	CancelOrder(ctx context.Context, id uint, actorID *uint) (*models.Order, *services.ServiceError)
}

// Counter records one occurrence of a named metric.
type Counter interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
}

// PaymentConsumer confirms orders whose payment succeeded and cancels those
// whose payment failed, which in turn confirms or releases their stock holds.
type PaymentConsumer struct {
	poller  Poller
	orders  OrderTransitions
	counter Counter
	logger  *zap.Logger
}

// NewPaymentConsumer builds the consumer. counter may be nil.
func NewPaymentConsumer(poller Poller, orders OrderTransitions, counter Counter, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{poller: poller, orders: orders, counter: counter, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *PaymentConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting payment events consumer")
	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Payment events polling stopped", zap.Error(err))
	}
}

// HandleMessage processes one queue message. Malformed messages and events
// that no longer apply are dropped; only internal failures are retried.
func (c *PaymentConsumer) HandleMessage(ctx context.Context, body string) error {
	// messages fanned out through SNS arrive wrapped in an envelope
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var evt models.PaymentEvent
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		c.logger.Warn("Dropping malformed payment event", zap.Error(err))
		return nil
	}
	if evt.OrderID == 0 || evt.Type == "" {
		c.logger.Warn("Dropping payment event with missing fields",
			zap.Uint("order_id", evt.OrderID),
			zap.String("type", evt.Type),
		)
		return nil
	}

	var svcErr *services.ServiceError
	switch evt.Type {
	case "payment_succeeded":
		_, svcErr = c.orders.ConfirmOrder(ctx, evt.OrderID, nil)
	case "payment_failed", "checkout_session_failed":
		_, svcErr = c.orders.CancelOrder(ctx, evt.OrderID, nil)
	default:
		c.logger.Info("Ignoring payment event", zap.String("type", evt.Type), zap.Uint("order_id", evt.OrderID))
		return nil
	}
	c.record(ctx, evt.Type)

	if svcErr == nil {
		c.logger.Info("Payment event applied", zap.String("type", evt.Type), zap.Uint("order_id", evt.OrderID))
		return nil
	}
	if svcErr.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("order %d: %s", evt.OrderID, svcErr.Message)
	}
	c.logger.Warn("Payment event not applied",
		zap.String("type", evt.Type),
		zap.Uint("order_id", evt.OrderID),
		zap.Int("status", svcErr.StatusCode),
		zap.String("reason", svcErr.Message),
	)
	return nil
}

func (c *PaymentConsumer) record(ctx context.Context, eventType string) {
	if c.counter == nil {
		return
	}
	if err := c.counter.RecordCount(ctx, aws_pkg.MetricPaymentEvents, map[string]string{"Type": eventType}); err != nil {
		c.logger.Warn("Failed to record payment metric", zap.Error(err))
	}
}
