package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	notificationDomain "github.com/marrakech-reviews/service-community/internal/domain/notification"
	reviewDomain "github.com/marrakech-reviews/service-community/internal/domain/review"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

// Rewarder credits an account for a community action.
type Rewarder interface {
	Reward(ctx context.Context, accountID uuid.UUID, action string) (*BalanceChangeDTO, error)
}

// CreateReviewRequest holds the data of a new review.
type CreateReviewRequest struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Rating   int      `json:"rating" binding:"required"`
	Location string   `json:"location" binding:"required"`
	Category string   `json:"category" binding:"required"`
	Tags     []string `json:"tags"`
}

// UpdateReviewRequest changes review fields. Omitted fields are unchanged.
type UpdateReviewRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Rating   *int      `json:"rating"`
	Location *string   `json:"location"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

// ModerateReviewRequest sets a review's moderation status.
type ModerateReviewRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReviewQuery filters review listings.
type ReviewQuery struct {
	Category  string
	Location  string
	Search    string
	MinRating int
	Status    string
	Author    string
	From      time.Time
	To        time.Time
}

// ReviewDTO is the API representation of a review.
type ReviewDTO struct {
	ID           uuid.UUID  `json:"id"`
	AuthorID     uuid.UUID  `json:"author_id"`
	AuthorName   string     `json:"author_name"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Rating       int        `json:"rating"`
	Location     string     `json:"location"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	Status       string     `json:"status"`
	HelpfulVotes int        `json:"helpful_votes"`
	Views        int        `json:"views"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ReviewStatsDTO summarizes reviews.
type ReviewStatsDTO struct {
	Total         int64            `json:"total_reviews"`
	Published     int64            `json:"published_reviews"`
	Pending       int64            `json:"pending_reviews"`
	Rejected      int64            `json:"rejected_reviews"`
	AverageRating float64          `json:"average_rating"`
	ByCategory    map[string]int64 `json:"categories_count"`
}

// ModerationDTO is the result of a moderation decision.
type ModerationDTO struct {
	Review   ReviewDTO         `json:"review"`
	Rewarded bool              `json:"rewarded"`
	Reward   *BalanceChangeDTO `json:"reward,omitempty"`
}

// ReviewService handles review authoring and moderation. Authors are
// rewarded once when a review is first published and for every helpful vote.
type ReviewService struct {
	reviews   reviewDomain.Repository
	accounts  accountDomain.Repository
	rewarder  Rewarder
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews reviewDomain.Repository,
	accounts accountDomain.Repository,
	rewarder Rewarder,
	notifier Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		accounts:  accounts,
		rewarder:  rewarder,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Categories returns the categories a review can be filed under.
func (s *ReviewService) Categories() []string {
	return reviewDomain.Categories
}

// Create stores a pending review by authorID.
func (s *ReviewService) Create(ctx context.Context, authorID uuid.UUID, req CreateReviewRequest) (*ReviewDTO, error) {
	author, err := s.accounts.FindByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	rv, err := reviewDomain.New(reviewDomain.Params{
		AuthorID:   authorID,
		AuthorName: author.FullName(),
		Title:      req.Title,
		Content:    req.Content,
		Rating:     req.Rating,
		Location:   req.Location,
		Category:   req.Category,
		Tags:       req.Tags,
	})
	if err != nil {
		return nil, err
	}
	if err := s.reviews.Save(ctx, rv); err != nil {
		return nil, err
	}

	s.logger.Info("review submitted", zap.String("review_id", rv.ID().String()), zap.String("author_id", authorID.String()))
	dto := toReviewDTO(rv)
	return &dto, nil
}

// ListPublished returns published reviews matching q.
func (s *ReviewService) ListPublished(ctx context.Context, q ReviewQuery, page, limit int) ([]ReviewDTO, int64, error) {
	filter := reviewDomain.ListFilter{
		Status:    reviewDomain.StatusPublished,
		Category:  q.Category,
		Location:  q.Location,
		Search:    q.Search,
		MinRating: q.MinRating,
	}
	return s.list(ctx, filter, page, limit)
}

// ListForModeration returns reviews in any status for staff.
func (s *ReviewService) ListForModeration(ctx context.Context, q ReviewQuery, page, limit int) ([]ReviewDTO, int64, error) {
	filter := reviewDomain.ListFilter{
		Author:    q.Author,
		Category:  q.Category,
		Search:    q.Search,
		MinRating: q.MinRating,
		From:      q.From,
		To:        q.To,
	}
	if q.Status != "" {
		st, err := reviewDomain.ParseStatus(q.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = st
	}
	return s.list(ctx, filter, page, limit)
}

// MyReviews returns the author's reviews in any status.
func (s *ReviewService) MyReviews(ctx context.Context, authorID uuid.UUID, page, limit int) ([]ReviewDTO, int64, error) {
	return s.list(ctx, reviewDomain.ListFilter{AuthorID: authorID}, page, limit)
}

// GetPublished returns a published review and counts the view. Reviews in
// other states are reported as not found.
func (s *ReviewService) GetPublished(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rv.IsVisible() {
		return nil, domain.NewNotFoundError("Review", id.String())
	}
	if err := s.reviews.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to count review view", zap.String("review_id", id.String()), zap.Error(err))
	}
	dto := toReviewDTO(rv)
	dto.Views++
	return &dto, nil
}

// Update edits a review. Only the author or an admin may edit. An edit by
// anyone but an admin sends the review back to moderation.
func (s *ReviewService) Update(ctx context.Context, actorID uuid.UUID, actorRole auth.Role, id uuid.UUID, req UpdateReviewRequest) (*ReviewDTO, error) {
	rv, err := s.owned(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	p := reviewDomain.UpdateParams{
		Title:    req.Title,
		Content:  req.Content,
		Rating:   req.Rating,
		Location: req.Location,
		Category: req.Category,
		Tags:     req.Tags,
	}
	if p.Empty() {
		return nil, domain.NewValidationError("no valid update data provided").WithCode("NO_UPDATE_DATA")
	}
	resubmit := actorRole != auth.RoleAdmin
	if err := rv.Update(p, resubmit); err != nil {
		return nil, err
	}
	if err := s.reviews.UpdateContent(ctx, rv, resubmit); err != nil {
		return nil, err
	}
	dto := toReviewDTO(rv)
	return &dto, nil
}

// Delete removes a review. Only the author or an admin may delete.
func (s *ReviewService) Delete(ctx context.Context, actorID uuid.UUID, actorRole auth.Role, id uuid.UUID) error {
	if _, err := s.owned(ctx, actorID, actorRole, id); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review deleted", zap.String("review_id", id.String()), zap.String("deleted_by", actorID.String()))
	return nil
}

// MarkHelpful records voterID's helpful vote and rewards the author. Each
// account votes at most once per review and never on its own.
func (s *ReviewService) MarkHelpful(ctx context.Context, voterID, id uuid.UUID) error {
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !rv.IsVisible() {
		return domain.NewNotFoundError("Review", id.String())
	}
	if rv.AuthorID() == voterID {
		return domain.NewForbiddenError("CANNOT_VOTE_OWN_REVIEW", "you cannot mark your own review as helpful")
	}
	if err := s.reviews.AddHelpfulVote(ctx, id, voterID); err != nil {
		return err
	}
	s.rewardBestEffort(ctx, rv, accountDomain.RewardHelpfulReview)
	return nil
}

// Moderate sets a review's status. The author is rewarded the first time the
// review is published, however often it is moderated afterwards.
func (s *ReviewService) Moderate(ctx context.Context, moderatorID, id uuid.UUID, status string) (*ModerationDTO, error) {
	st, err := reviewDomain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	firstPublish, err := s.reviews.SetStatus(ctx, id, st, now)
	if err != nil {
		return nil, err
	}
	rv.SetStatus(st, now)

	s.logger.Info("review moderated",
		zap.String("review_id", id.String()),
		zap.String("status", string(st)),
		zap.Bool("first_publish", firstPublish),
		zap.String("moderator_id", moderatorID.String()),
	)
	publish(ctx, s.publisher, s.logger, events.ReviewModerated, id.String(), events.ReviewModeratedEvent{
		ReviewID:     id,
		AuthorID:     rv.AuthorID(),
		Status:       string(st),
		FirstPublish: firstPublish,
		ModeratedBy:  moderatorID,
		OccurredAt:   now,
	})

	result := &ModerationDTO{Review: toReviewDTO(rv)}
	switch {
	case firstPublish:
		result.Reward = s.rewardBestEffort(ctx, rv, accountDomain.RewardReviewApproved)
		result.Rewarded = result.Reward != nil
		notifyBestEffort(ctx, s.notifier, s.logger, rv.AuthorID(), notificationDomain.TypeReview,
			"Review Published", "Your review \""+rv.Title()+"\" is now live",
			map[string]any{"review_id": id.String()},
		)
	case st == reviewDomain.StatusRejected:
		notifyBestEffort(ctx, s.notifier, s.logger, rv.AuthorID(), notificationDomain.TypeReview,
			"Review Rejected", "Your review \""+rv.Title()+"\" was not approved",
			map[string]any{"review_id": id.String()},
		)
	}
	return result, nil
}

// Stats returns review totals.
func (s *ReviewService) Stats(ctx context.Context) (*ReviewStatsDTO, error) {
	stats, err := s.reviews.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &ReviewStatsDTO{
		Total:         stats.Total,
		Published:     stats.Published,
		Pending:       stats.Pending,
		Rejected:      stats.Rejected,
		AverageRating: stats.AverageRating,
		ByCategory:    stats.ByCategory,
	}, nil
}

func (s *ReviewService) list(ctx context.Context, filter reviewDomain.ListFilter, page, limit int) ([]ReviewDTO, int64, error) {
	reviews, total, err := s.reviews.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]ReviewDTO, len(reviews))
	for i, rv := range reviews {
		dtos[i] = toReviewDTO(rv)
	}
	return dtos, total, nil
}

func (s *ReviewService) owned(ctx context.Context, actorID uuid.UUID, actorRole auth.Role, id uuid.UUID) (*reviewDomain.Review, error) {
	rv, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.AuthorID() != actorID && actorRole != auth.RoleAdmin {
		return nil, domain.NewForbiddenError("NOT_REVIEW_OWNER", "only the author or an admin can change this review")
	}
	return rv, nil
}

// rewardBestEffort credits the author and only logs failures. The vote or
// status change that earned the reward is already stored.
func (s *ReviewService) rewardBestEffort(ctx context.Context, rv *reviewDomain.Review, action accountDomain.RewardAction) *BalanceChangeDTO {
	if s.rewarder == nil {
		return nil
	}
	res, err := s.rewarder.Reward(ctx, rv.AuthorID(), string(action))
	if err != nil {
		s.logger.Error("failed to reward review author",
			zap.String("review_id", rv.ID().String()),
			zap.String("author_id", rv.AuthorID().String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return nil
	}
	return res
}

func toReviewDTO(rv *reviewDomain.Review) ReviewDTO {
	tags := rv.Tags()
	if tags == nil {
		tags = []string{}
	}
	return ReviewDTO{
		ID:           rv.ID(),
		AuthorID:     rv.AuthorID(),
		AuthorName:   rv.AuthorName(),
		Title:        rv.Title(),
		Content:      rv.Content(),
		Rating:       rv.Rating(),
		Location:     rv.Location(),
		Category:     rv.Category(),
		Tags:         tags,
		Status:       string(rv.Status()),
		HelpfulVotes: rv.HelpfulVotes(),
		Views:        rv.Views(),
		PublishedAt:  rv.PublishedAt(),
		CreatedAt:    rv.CreatedAt(),
		UpdatedAt:    rv.UpdatedAt(),
	}
}
