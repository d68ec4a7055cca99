package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Usage is one immutable redemption record.
type Usage struct {
	ID             uuid.UUID
	CouponID       uuid.UUID
	AccountID      uuid.UUID
	OrderAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// NewUsage creates a usage record.
func NewUsage(couponID, accountID uuid.UUID, orderAmount, discount decimal.Decimal, at time.Time) Usage {
	return Usage{
		ID:             uuid.New(),
		CouponID:       couponID,
		AccountID:      accountID,
		OrderAmount:    orderAmount,
		DiscountAmount: discount,
		UsedAt:         at.UTC(),
	}
}

// ListFilter narrows an admin listing. Now is required when Status is set.
type ListFilter struct {
	Status Status
	Now    time.Time
}

// Popular is a coupon ranked by usage.
type Popular struct {
	ID         uuid.UUID
	Code       string
	Title      string
	UsageCount int
}

// Stats summarizes coupon activity.
type Stats struct {
	Total        int64
	Active       int64
	TotalUsage   int64
	TotalSavings decimal.Decimal
	MostPopular  []Popular
}

// AccountUsageStats summarizes one account's redemptions.
type AccountUsageStats struct {
	TotalUsed  int64
	TotalSaved decimal.Decimal
	LastUsedAt *time.Time
}

// Repository persists coupons and their usage ledger.
type Repository interface {
	// Save inserts a coupon. A duplicate code or reward key is a conflict.
	Save(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	// FindByCode and FindByID return a domain not found error when nothing matches.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// FindWeeklyReward returns the weekly reward of accountID created in [from, to), or nil.
	FindWeeklyReward(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*Coupon, error)
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Coupon, int64, error)
	ListAvailable(ctx context.Context, accountID uuid.UUID, now time.Time) ([]*Coupon, error)
	CountUsage(ctx context.Context, couponID, accountID uuid.UUID) (int, error)
	// Redeem increments the usage count if the global limit allows it and
	// records usage, atomically. It returns ErrGlobalLimitExceeded when the
	// limit is already reached and nothing is written.
	Redeem(ctx context.Context, usage Usage) error
	ListUsage(ctx context.Context, couponID uuid.UUID, page, limit int) ([]Usage, int64, error)
	AccountUsageStats(ctx context.Context, accountID uuid.UUID) (*AccountUsageStats, error)
	Stats(ctx context.Context, now time.Time, top int) (*Stats, error)
}
