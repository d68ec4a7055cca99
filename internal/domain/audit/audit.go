package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable record of a successful mutating action.
type Entry struct {
	ID           uuid.UUID
	ActorID      uuid.UUID
	ActorRole    string
	Action       string
	ResourceKind string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// NewEntry creates an entry stamped now.
func NewEntry(actorID uuid.UUID, actorRole, action, resourceKind, resourceID string, details map[string]any) Entry {
	return Entry{
		ID:           uuid.New(),
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	}
}

// Filter narrows an audit log listing. Zero values match everything.
type Filter struct {
	ActorID      uuid.UUID
	Action       string
	ResourceKind string
}

// Repository persists audit entries.
type Repository interface {
	Save(ctx context.Context, e Entry) error
	List(ctx context.Context, filter Filter, page, limit int) ([]Entry, int64, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
