// Package events pushes order and payment lifecycle events to the realtime
// topics. Publishing is best-effort everywhere; the checkout and settlement
// paths never fail because a broker was down.
package events

import (
	"context"
	"encoding/json"

	"storefront/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the event fan-out used by the services.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, evt models.OrderCreatedEvent) error
	PublishOrderStatus(ctx context.Context, evt models.OrderStatusEvent) error
	PublishPayment(ctx context.Context, evt models.PaymentEvent) error
	Close() error
}

// KafkaProducer implements Publisher over a single kafka topic, keyed by
// order id so one order's events stay ordered.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("kafka producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers))
	return &KafkaProducer{writer: w, topic: topic, logger: logger}
}

func (p *KafkaProducer) publish(ctx context.Context, key string, evt interface{}) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("kafka publish failed",
			zap.String("key", key),
			zap.String("topic", p.topic),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *KafkaProducer) PublishOrderCreated(ctx context.Context, evt models.OrderCreatedEvent) error {
	return p.publish(ctx, evt.OrderID, evt)
}

func (p *KafkaProducer) PublishOrderStatus(ctx context.Context, evt models.OrderStatusEvent) error {
	return p.publish(ctx, evt.OrderID, evt)
}

func (p *KafkaProducer) PublishPayment(ctx context.Context, evt models.PaymentEvent) error {
	return p.publish(ctx, evt.OrderID, evt)
}

func (p *KafkaProducer) Close() error {
	p.logger.Info("closing kafka producer", zap.String("topic", p.topic))
	return p.writer.Close()
}

// NoopPublisher stands in when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, models.OrderCreatedEvent) error { return nil }
func (NoopPublisher) PublishOrderStatus(context.Context, models.OrderStatusEvent) error   { return nil }
func (NoopPublisher) PublishPayment(context.Context, models.PaymentEvent) error           { return nil }
func (NoopPublisher) Close() error                                                        { return nil }
