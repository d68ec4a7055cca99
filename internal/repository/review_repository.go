package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	reviewDomain "github.com/marrakech-reviews/service-community/internal/domain/review"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// ReviewModel is the GORM model for the reviews table.
type ReviewModel struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	AuthorID     uuid.UUID                   `gorm:"type:uuid;not null;index"`
	AuthorName   string                      `gorm:"type:varchar(200);not null"`
	Title        string                      `gorm:"type:varchar(200);not null"`
	Content      string                      `gorm:"type:text;not null"`
	Rating       int                         `gorm:"not null;index"`
	Location     string                      `gorm:"type:varchar(200);not null"`
	Category     string                      `gorm:"type:varchar(40);not null;index"`
	Tags         datatypes.JSONSlice[string] `gorm:"type:json"`
	Status       string                      `gorm:"type:varchar(20);not null;index"`
	HelpfulVotes int                         `gorm:"not null"`
	Views        int                         `gorm:"not null"`
	PublishedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (ReviewModel) TableName() string { return "reviews" }

// ReviewHelpfulVoteModel records that an account found a review helpful.
type ReviewHelpfulVoteModel struct {
	ReviewID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	VoterID   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (ReviewHelpfulVoteModel) TableName() string { return "review_helpful_votes" }

// ReviewRepositoryImpl implements review.Repository using GORM.
type ReviewRepositoryImpl struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepositoryImpl.
func NewReviewRepository(db *gorm.DB) *ReviewRepositoryImpl {
	return &ReviewRepositoryImpl{db: db}
}

// Save inserts a review.
func (r *ReviewRepositoryImpl) Save(ctx context.Context, rv *reviewDomain.Review) error {
	return r.db.WithContext(ctx).Create(toReviewModel(rv)).Error
}

// UpdateContent writes the author-editable columns. Counters and the first
// publication time are never written here.
func (r *ReviewRepositoryImpl) UpdateContent(ctx context.Context, rv *reviewDomain.Review, resubmit bool) error {
	values := map[string]any{
		"title":      rv.Title(),
		"content":    rv.Content(),
		"rating":     rv.Rating(),
		"location":   rv.Location(),
		"category":   rv.Category(),
		"tags":       datatypes.NewJSONSlice(rv.Tags()),
		"updated_at": rv.UpdatedAt(),
	}
	if resubmit {
		values["status"] = string(rv.Status())
	}

	result := r.db.WithContext(ctx).Model(&ReviewModel{}).Where("id = ?", rv.ID()).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Review", rv.ID().String())
	}
	return nil
}

// Delete removes a review and its votes.
func (r *ReviewRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&ReviewHelpfulVoteModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&ReviewModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Review", id.String())
		}
		return nil
	})
}

// FindByID returns a review in any status.
func (r *ReviewRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*reviewDomain.Review, error) {
	var m ReviewModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("Review", id.String())
		}
		return nil, err
	}
	return toReviewDomain(&m), nil
}

// List returns reviews matching filter, newest first.
func (r *ReviewRepositoryImpl) List(ctx context.Context, filter reviewDomain.ListFilter, page, limit int) ([]*reviewDomain.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&ReviewModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.AuthorID != uuid.Nil {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Author)); s != "" {
		query = query.Where("LOWER(author_name) LIKE ?", "%"+s+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", strings.ToLower(filter.Category))
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Location)); s != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+s+"%")
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}
	if filter.MinRating > 0 {
		query = query.Where("rating >= ?", filter.MinRating)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []ReviewModel
	if err := query.Order("created_at DESC").Offset(offsetFor(page, limit)).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	reviews := make([]*reviewDomain.Review, len(models))
	for i := range models {
		reviews[i] = toReviewDomain(&models[i])
	}
	return reviews, total, nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *ReviewRepositoryImpl) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&ReviewModel{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// SetStatus stores a moderation decision. The first publication is claimed
// with a conditional update so concurrent moderators cannot both see it.
func (r *ReviewRepositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, status reviewDomain.Status, at time.Time) (bool, error) {
	firstPublish := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ReviewModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": string(status), "updated_at": at.UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Review", id.String())
		}

		if status != reviewDomain.StatusPublished {
			return nil
		}
		claimed := tx.Model(&ReviewModel{}).
			Where("id = ? AND published_at IS NULL", id).
			UpdateColumn("published_at", at.UTC())
		if claimed.Error != nil {
			return claimed.Error
		}
		firstPublish = claimed.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return firstPublish, nil
}

// AddHelpfulVote inserts the vote and bumps the counter in one transaction.
func (r *ReviewRepositoryImpl) AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := ReviewHelpfulVoteModel{ReviewID: reviewID, VoterID: voterID, CreatedAt: time.Now().UTC()}
		if err := tx.Create(&vote).Error; err != nil {
			if isDuplicateKey(err) {
				return domain.NewConflictError("you already marked this review as helpful").WithCode("ALREADY_VOTED")
			}
			return err
		}
		result := tx.Model(&ReviewModel{}).
			Where("id = ?", reviewID).
			UpdateColumn("helpful_votes", gorm.Expr("helpful_votes + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Review", reviewID.String())
		}
		return nil
	})
}

// Stats returns review totals. Ratings and categories count published reviews only.
func (r *ReviewRepositoryImpl) Stats(ctx context.Context) (*reviewDomain.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &reviewDomain.Stats{ByCategory: make(map[string]int64)}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := db.Model(&ReviewModel{}).Select("status, count(*) as count").Group("status").Find(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, sc := range byStatus {
		stats.Total += sc.Count
		switch reviewDomain.Status(sc.Status) {
		case reviewDomain.StatusPublished:
			stats.Published = sc.Count
		case reviewDomain.StatusPending:
			stats.Pending = sc.Count
		case reviewDomain.StatusRejected:
			stats.Rejected = sc.Count
		}
	}

	var avg struct{ Average float64 }
	if err := db.Model(&ReviewModel{}).
		Select("COALESCE(AVG(rating), 0) as average").
		Where("status = ?", string(reviewDomain.StatusPublished)).
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	stats.AverageRating = avg.Average

	type categoryCount struct {
		Category string
		Count    int64
	}
	var byCategory []categoryCount
	if err := db.Model(&ReviewModel{}).
		Select("category, count(*) as count").
		Where("status = ?", string(reviewDomain.StatusPublished)).
		Group("category").
		Find(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, cc := range byCategory {
		stats.ByCategory[cc.Category] = cc.Count
	}
	return stats, nil
}

func toReviewModel(rv *reviewDomain.Review) *ReviewModel {
	return &ReviewModel{
		ID:           rv.ID(),
		AuthorID:     rv.AuthorID(),
		AuthorName:   rv.AuthorName(),
		Title:        rv.Title(),
		Content:      rv.Content(),
		Rating:       rv.Rating(),
		Location:     rv.Location(),
		Category:     rv.Category(),
		Tags:         datatypes.NewJSONSlice(rv.Tags()),
		Status:       string(rv.Status()),
		HelpfulVotes: rv.HelpfulVotes(),
		Views:        rv.Views(),
		PublishedAt:  rv.PublishedAt(),
		CreatedAt:    rv.CreatedAt(),
		UpdatedAt:    rv.UpdatedAt(),
	}
}

func toReviewDomain(m *ReviewModel) *reviewDomain.Review {
	return reviewDomain.Reconstruct(
		m.ID, m.AuthorID, m.AuthorName, m.Title, m.Content, m.Rating,
		m.Location, m.Category, []string(m.Tags), reviewDomain.Status(m.Status),
		m.HelpfulVotes, m.Views, m.PublishedAt, m.CreatedAt, m.UpdatedAt,
	)
}
