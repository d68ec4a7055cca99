package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/marrakech-reviews/service-community/pkg/kafka"
)

// Source is the CloudEvents source of everything this service publishes.
const Source = "service-community"

// KafkaPublisher publishes domain events as CloudEvents to one topic.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher creates a KafkaPublisher writing to topic.
func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish wraps data in a CloudEvent keyed by subject.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, subject string, data any) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		return err
	}
	ce.Subject = subject
	return p.producer.PublishEvent(ctx, p.topic, ce)
}

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event and drops it.
func (p *LogPublisher) Publish(_ context.Context, eventType, subject string, _ any) error {
	p.logger.Debug("event not published, no brokers configured",
		zap.String("type", eventType),
		zap.String("subject", subject),
	)
	return nil
}
