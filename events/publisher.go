package events

import (
	"context"
	"encoding/json"

	"github.com/yashrajoria/management-backend/models"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
	"go.uber.org/zap"
)

// StockPublisher announces committed stock mutations.
type StockPublisher interface {
	PublishStockEvent(ctx context.Context, evt models.StockEvent)
}

// OrderPublisher announces order state changes.
type OrderPublisher interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent)
}

// AccountPublisher hands account events to whatever delivers them to users.
type AccountPublisher interface {
	PublishAccountEvent(ctx context.Context, evt models.AccountEvent)
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishStockEvent(context.Context, models.StockEvent) {}
func (Nop) PublishOrderEvent(context.Context, models.OrderEvent) {}
func (Nop) PublishAccountEvent(context.Context, models.AccountEvent) {}

// SNSStockPublisher sends stock events to an SNS topic. Failures are logged
// and never returned: the stock change has already been committed.
type SNSStockPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSStockPublisher(client aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *SNSStockPublisher {
	return &SNSStockPublisher{client: client, topicArn: topicArn, logger: logger}
}

func (p *SNSStockPublisher) PublishStockEvent(ctx context.Context, evt models.StockEvent) {
	if p.client == nil || p.topicArn == "" {
		p.logger.Debug("SNS not configured, skipping stock event", zap.String("type", evt.Type))
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("Failed to marshal stock event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.topicArn, b); err != nil {
		p.logger.Error("Failed to publish stock event",
			zap.String("type", evt.Type),
			zap.Uint("product_id", evt.ProductID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Published stock event", zap.String("type", evt.Type), zap.String("topic", p.topicArn))
}

// SNSAccountPublisher sends account events to the topic the notification
// side subscribes to. Like stock events they are best effort.
type SNSAccountPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSAccountPublisher(client aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *SNSAccountPublisher {
	return &SNSAccountPublisher{client: client, topicArn: topicArn, logger: logger}
}

func (p *SNSAccountPublisher) PublishAccountEvent(ctx context.Context, evt models.AccountEvent) {
	if p.client == nil || p.topicArn == "" {
		p.logger.Debug("SNS not configured, skipping account event", zap.String("type", evt.Type))
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("Failed to marshal account event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.topicArn, b); err != nil {
		p.logger.Error("Failed to publish account event",
			zap.String("type", evt.Type),
			zap.Uint("user_id", evt.UserID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Published account event", zap.String("type", evt.Type), zap.String("topic", p.topicArn))
}
