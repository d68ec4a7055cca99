// Package events holds topic names, CloudEvent types and payloads shared
// between the community service and its producers/consumers.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicCommunityEvents = "community.events"
	TopicContentEvents   = "content.events"
)

// Produced by this service.
const (
	CouponRedeemed           = "coupon.redeemed"
	CouponWeeklyRewardIssued = "coupon.weekly_reward_issued"
	WalletCredited           = "wallet.credited"
	WalletDebited            = "wallet.debited"
	AccountRoleChanged       = "account.role_changed"
	AccountStatusChanged     = "account.status_changed"
	AccountRegistered        = "account.registered"
	ReviewModerated          = "review.moderated"
)

// Consumed from the content service.
const (
	ReviewApproved   = "review.approved"
	ArticlePublished = "article.published"
	ReviewHelpful    = "review.helpful"
)

type CouponRedeemedEvent struct {
	CouponID    uuid.UUID       `json:"coupon_id"`
	Code        string          `json:"code"`
	AccountID   uuid.UUID       `json:"account_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	Discount    decimal.Decimal `json:"discount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type WeeklyRewardIssuedEvent struct {
	CouponID   uuid.UUID `json:"coupon_id"`
	Code       string    `json:"code"`
	AccountID  uuid.UUID `json:"account_id"`
	ValidUntil time.Time `json:"valid_until"`
	OccurredAt time.Time `json:"occurred_at"`
}

type WalletChangedEvent struct {
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type AccountRoleChangedEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	OldRole    string    `json:"old_role"`
	NewRole    string    `json:"new_role"`
	ChangedBy  uuid.UUID `json:"changed_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AccountStatusChangedEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	IsActive   bool      `json:"is_active"`
	ChangedBy  uuid.UUID `json:"changed_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AccountRegisteredEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReviewModeratedEvent reports a moderation decision on a review hosted by
// this service. FirstPublish is set once per review.
type ReviewModeratedEvent struct {
	ReviewID     uuid.UUID `json:"review_id"`
	AuthorID     uuid.UUID `json:"author_id"`
	Status       string    `json:"status"`
	FirstPublish bool      `json:"first_publish"`
	ModeratedBy  uuid.UUID `json:"moderated_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ContentRewardEvent is the payload of review.approved, article.published and
// review.helpful. AuthorID is the account that earns the reward.
type ContentRewardEvent struct {
	ContentID  uuid.UUID `json:"content_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
