package review

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a review listing. Zero fields match everything.
type ListFilter struct {
	Status    Status
	AuthorID  uuid.UUID
	Author    string
	Category  string
	Location  string
	Search    string
	MinRating int
	From      time.Time
	To        time.Time
}

// Stats summarizes stored reviews.
type Stats struct {
	Total         int64
	Published     int64
	Pending       int64
	Rejected      int64
	AverageRating float64
	ByCategory    map[string]int64
}

// Repository persists reviews and helpful votes.
type Repository interface {
	Save(ctx context.Context, r *Review) error
	// UpdateContent writes the author-editable fields, and the status too
	// when resubmit is set.
	UpdateContent(ctx context.Context, r *Review, resubmit bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Review, int64, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// SetStatus stores a moderation decision. firstPublish is true for
	// exactly one call per review: the first that publishes it.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (firstPublish bool, err error)
	// AddHelpfulVote records one vote per voter and bumps the counter,
	// atomically. A second vote by the same voter is a conflict.
	AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) error
	// Stats averages ratings over published reviews only.
	Stats(ctx context.Context) (*Stats, error)
}
