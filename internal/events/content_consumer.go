package events

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/marrakech-reviews/service-community/internal/application"
	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
	"github.com/marrakech-reviews/service-community/pkg/kafka"
)

// Rewarder credits an account for a community action.
type Rewarder interface {
	Reward(ctx context.Context, accountID uuid.UUID, action string) (*application.BalanceChangeDTO, error)
}

var rewardActions = map[string]accountDomain.RewardAction{
	events.ReviewApproved:   accountDomain.RewardReviewApproved,
	events.ArticlePublished: accountDomain.RewardArticlePublished,
	events.ReviewHelpful:    accountDomain.RewardHelpfulReview,
}

// ContentEventConsumer listens to content events and rewards their authors.
type ContentEventConsumer struct {
	consumer *kafka.Consumer
	rewarder Rewarder
	logger   *zap.Logger
}

// NewContentEventConsumer creates a new consumer for content events.
func NewContentEventConsumer(
	brokers []string,
	groupID string,
	rewarder Rewarder,
	logger *zap.Logger,
) *ContentEventConsumer {
	return &ContentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, events.TopicContentEvents, logger),
		rewarder: rewarder,
		logger:   logger,
	}
}

// Start begins consuming content events. It blocks until the context is cancelled.
func (c *ContentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *ContentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from content topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return kafka.Permanent(err)
	}

	action, ok := rewardActions[strings.ToLower(cloudEvent.Type)]
	if !ok {
		c.logger.Debug("ignoring unhandled content event type", zap.String("type", cloudEvent.Type))
		return nil
	}

	var event events.ContentRewardEvent
	if err := cloudEvent.ParseData(&event); err != nil {
		c.logger.Error("failed to parse content event data", zap.String("type", cloudEvent.Type), zap.Error(err))
		return kafka.Permanent(err)
	}
	if event.AuthorID == uuid.Nil {
		c.logger.Warn("content event without author", zap.String("id", cloudEvent.ID))
		return nil
	}

	result, err := c.rewarder.Reward(ctx, event.AuthorID, string(action))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			return kafka.Permanent(err)
		}
		return err
	}

	c.logger.Info("content reward credited",
		zap.String("event_id", cloudEvent.ID),
		zap.String("author_id", event.AuthorID.String()),
		zap.String("action", string(action)),
		zap.String("new_balance", result.NewBalance.String()),
	)
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *ContentEventConsumer) Close() error {
	return c.consumer.Close()
}
