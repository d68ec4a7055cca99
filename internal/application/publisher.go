package application

import (
	"context"

	"go.uber.org/zap"
)

// EventPublisher publishes domain events to the community event stream.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subject string, data any) error
}

// publish sends an event after the state change it describes has been
// committed. Failures are logged and never undo the change.
func publish(ctx context.Context, pub EventPublisher, logger *zap.Logger, eventType, subject string, data any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, eventType, subject, data); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
