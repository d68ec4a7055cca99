package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stats summarizes stored notifications.
type Stats struct {
	Total  int64
	Unread int64
	ByType map[string]int64
}

// Repository persists notifications. Recipient-scoped methods return a not
// found error when the notification belongs to someone else.
type Repository interface {
	SaveBatch(ctx context.Context, ns []*Notification) error
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, recipientID uuid.UUID) error
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Preferences returns DefaultPreferences when none were saved.
	Preferences(ctx context.Context, accountID uuid.UUID) (Preferences, error)
	SavePreferences(ctx context.Context, accountID uuid.UUID, p Preferences) error
}
