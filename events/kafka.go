package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yashrajoria/management-backend/models"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOrderPublisher writes order events keyed by order id, so every event
// for one order lands on the same partition.
type KafkaOrderPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

func NewKafkaOrderPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaOrderPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaOrderPublisher{writer: writer, logger: logger}
}

func NewKafkaOrderPublisherWithWriter(writer MessageWriter, logger *zap.Logger) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{writer: writer, logger: logger}
}

func (p *KafkaOrderPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("Failed to marshal order event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.OrderID), 10)),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to send order event",
			zap.String("type", evt.Type),
			zap.Uint("order_id", evt.OrderID),
			zap.Error(err),
		)
	}
}

func (p *KafkaOrderPublisher) Close() error {
	return p.writer.Close()
}
