package review

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// Status is the moderation state of a review.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a moderation status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusPublished, StatusRejected:
		return st, nil
	}
	return "", domain.NewValidationError("invalid status: " + s).WithCode("INVALID_STATUS")
}

// Categories are the places a review can be filed under.
var Categories = []string{
	"restaurants", "hotels", "attractions", "shopping", "nightlife", "tours",
	"transportation", "services", "gardens", "palaces", "markets", "museums",
}

const (
	minRating      = 1
	maxRating      = 5
	maxTitleLength = 200
	maxTags        = 10
)

// Review is a rated write-up of a place. New and edited reviews wait in
// pending until a moderator publishes or rejects them.
type Review struct {
	id           uuid.UUID
	authorID     uuid.UUID
	authorName   string
	title        string
	content      string
	rating       int
	location     string
	category     string
	tags         []string
	status       Status
	helpfulVotes int
	views        int
	publishedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// Params holds the author-supplied fields of a review.
type Params struct {
	AuthorID   uuid.UUID
	AuthorName string
	Title      string
	Content    string
	Rating     int
	Location   string
	Category   string
	Tags       []string
}

// New creates a pending review.
func New(p Params) (*Review, error) {
	if p.AuthorID == uuid.Nil {
		return nil, domain.NewValidationError("author is required")
	}
	now := time.Now().UTC()
	r := &Review{
		id:         uuid.New(),
		authorID:   p.AuthorID,
		authorName: strings.TrimSpace(p.AuthorName),
		title:      strings.TrimSpace(p.Title),
		content:    strings.TrimSpace(p.Content),
		rating:     p.Rating,
		location:   strings.TrimSpace(p.Location),
		category:   strings.ToLower(strings.TrimSpace(p.Category)),
		tags:       normalizeTags(p.Tags),
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reconstruct rebuilds a Review from persistence.
func Reconstruct(
	id, authorID uuid.UUID, authorName, title, content string, rating int,
	location, category string, tags []string, status Status,
	helpfulVotes, views int, publishedAt *time.Time, createdAt, updatedAt time.Time,
) *Review {
	return &Review{
		id: id, authorID: authorID, authorName: authorName, title: title, content: content,
		rating: rating, location: location, category: category, tags: tags, status: status,
		helpfulVotes: helpfulVotes, views: views, publishedAt: publishedAt,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// UpdateParams changes review fields. Nil fields are unchanged.
type UpdateParams struct {
	Title    *string
	Content  *string
	Rating   *int
	Location *string
	Category *string
	Tags     *[]string
}

// Empty reports whether p changes nothing.
func (p UpdateParams) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Rating == nil &&
		p.Location == nil && p.Category == nil && p.Tags == nil
}

// Update applies p and re-validates. With resubmit the review goes back to
// pending. On error the review is left unchanged.
func (r *Review) Update(p UpdateParams, resubmit bool) error {
	next := *r
	if p.Title != nil {
		next.title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		next.content = strings.TrimSpace(*p.Content)
	}
	if p.Rating != nil {
		next.rating = *p.Rating
	}
	if p.Location != nil {
		next.location = strings.TrimSpace(*p.Location)
	}
	if p.Category != nil {
		next.category = strings.ToLower(strings.TrimSpace(*p.Category))
	}
	if p.Tags != nil {
		next.tags = normalizeTags(*p.Tags)
	}
	if err := next.validate(); err != nil {
		return err
	}
	if resubmit {
		next.status = StatusPending
	}
	next.updatedAt = time.Now().UTC()
	*r = next
	return nil
}

// SetStatus records a moderation decision in memory. The repository decides
// whether it is the first publication.
func (r *Review) SetStatus(s Status, at time.Time) {
	r.status = s
	if s == StatusPublished && r.publishedAt == nil {
		t := at.UTC()
		r.publishedAt = &t
	}
	r.updatedAt = at.UTC()
}

// IsVisible reports whether the review is shown to the public.
func (r *Review) IsVisible() bool { return r.status == StatusPublished }

func (r *Review) validate() error {
	switch {
	case r.title == "":
		return domain.NewValidationError("title is required")
	case len(r.title) > maxTitleLength:
		return domain.NewValidationError("title is too long")
	case r.content == "":
		return domain.NewValidationError("content is required")
	case r.location == "":
		return domain.NewValidationError("location is required")
	case r.rating < minRating || r.rating > maxRating:
		return domain.NewValidationError("rating must be between 1 and 5").WithCode("INVALID_RATING")
	case !slices.Contains(Categories, r.category):
		return domain.NewValidationError("invalid category: " + r.category).WithCode("INVALID_CATEGORY")
	case len(r.tags) > maxTags:
		return domain.NewValidationError("too many tags")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Review) ID() uuid.UUID           { return r.id }
func (r *Review) AuthorID() uuid.UUID     { return r.authorID }
func (r *Review) AuthorName() string      { return r.authorName }
func (r *Review) Title() string           { return r.title }
func (r *Review) Content() string         { return r.content }
func (r *Review) Rating() int             { return r.rating }
func (r *Review) Location() string        { return r.location }
func (r *Review) Category() string        { return r.category }
func (r *Review) Tags() []string          { return r.tags }
func (r *Review) Status() Status          { return r.status }
func (r *Review) HelpfulVotes() int       { return r.helpfulVotes }
func (r *Review) Views() int              { return r.views }
func (r *Review) PublishedAt() *time.Time { return r.publishedAt }
func (r *Review) CreatedAt() time.Time    { return r.createdAt }
func (r *Review) UpdatedAt() time.Time    { return r.updatedAt }
