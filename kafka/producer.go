package kafka

import (
	"context"
	"encoding/json"

	"medicine-marketplace/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes order lifecycle events to the order-events topic.
// Publication is best-effort: the notification document in the database is
// the record of truth, the topic only fans events out.
type Producer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("kafka producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers))
	return &Producer{writer: w, log: log}
}

func (p *Producer) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("order event publish failed",
			zap.String("order_id", evt.OrderID),
			zap.String("type", evt.Type),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
