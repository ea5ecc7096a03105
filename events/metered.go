package events

import (
	"context"
	"strconv"

	"github.com/yashrajoria/management-backend/models"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
	"go.uber.org/zap"
)

// Counter records one occurrence of a named metric.
type Counter interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
}

var stockEventMetrics = map[string]string{
	"stock.movement":  aws_pkg.MetricStockMovements,
	"stock.reserved":  aws_pkg.MetricStockReserved,
	"stock.released":  aws_pkg.MetricStockReleased,
	"stock.confirmed": aws_pkg.MetricStockConfirmed,
}

// MeteredStockPublisher counts every stock event before handing it on.
type MeteredStockPublisher struct {
	next    StockPublisher
	counter Counter
	logger  *zap.Logger
}

func NewMeteredStockPublisher(next StockPublisher, counter Counter, logger *zap.Logger) *MeteredStockPublisher {
	if next == nil {
		next = Nop{}
	}
	return &MeteredStockPublisher{next: next, counter: counter, logger: logger}
}

func (p *MeteredStockPublisher) PublishStockEvent(ctx context.Context, evt models.StockEvent) {
	if name, ok := stockEventMetrics[evt.Type]; ok {
		dims := map[string]string{"Location": strconv.FormatUint(uint64(evt.LocationID), 10)}
		if evt.Movement != "" {
			dims["Movement"] = string(evt.Movement)
		}
		if err := p.counter.RecordCount(ctx, name, dims); err != nil {
			p.logger.Warn("Failed to record stock metric", zap.String("metric", name), zap.Error(err))
		}
	}
	p.next.PublishStockEvent(ctx, evt)
}
