package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	couponDomain "github.com/marrakech-reviews/service-community/internal/domain/coupon"
	notificationDomain "github.com/marrakech-reviews/service-community/internal/domain/notification"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

const maxWeeklyRewardAttempts = 3

// CouponRequest names a coupon and the order it should apply to.
type CouponRequest struct {
	Code        string          `json:"code" binding:"required"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// CouponValidationDTO is the outcome of validating a coupon for an order.
// Invalid coupons carry a machine readable reason.
type CouponValidationDTO struct {
	Valid    bool            `json:"valid"`
	Code     string          `json:"code"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
	Coupon   *CouponDTO      `json:"coupon,omitempty"`
	Discount decimal.Decimal `json:"discount"`

	rejection *couponDomain.Rejection
}

// Err returns the rejection of an invalid result, or nil.
func (v *CouponValidationDTO) Err() error {
	if v.rejection == nil {
		return nil
	}
	return v.rejection
}

// RedemptionDTO describes one recorded coupon use.
type RedemptionDTO struct {
	UsageID     uuid.UUID       `json:"usage_id"`
	CouponID    uuid.UUID       `json:"coupon_id"`
	Code        string          `json:"code"`
	AccountID   uuid.UUID       `json:"user_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	Discount    decimal.Decimal `json:"discount"`
	UsedAt      time.Time       `json:"used_at"`
}

// CouponLedger validates and redeems coupons and issues weekly rewards.
type CouponLedger struct {
	repo      couponDomain.Repository
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCouponLedger creates a new CouponLedger.
func NewCouponLedger(repo couponDomain.Repository, notifier Notifier, publisher EventPublisher, logger *zap.Logger) *CouponLedger {
	return &CouponLedger{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Validate checks whether accountID may use code for orderAmount. It never
// writes. A rejected coupon is reported in the result; the error is
// reserved for store failures.
func (l *CouponLedger) Validate(ctx context.Context, code string, accountID uuid.UUID, orderAmount decimal.Decimal) (*CouponValidationDTO, error) {
	code = couponDomain.NormalizeCode(code)
	if orderAmount.IsNegative() {
		return nil, domain.NewValidationError("order amount cannot be negative")
	}
	if code == "" {
		return rejected(code, couponDomain.ErrNotFound), nil
	}

	c, err := l.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return rejected(code, couponDomain.ErrNotFound), nil
		}
		return nil, err
	}

	used, err := l.repo.CountUsage(ctx, c.ID(), accountID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if err := c.Evaluate(now, accountID, orderAmount, used); err != nil {
		var rejection *couponDomain.Rejection
		if errors.As(err, &rejection) {
			return rejected(code, rejection), nil
		}
		return nil, err
	}

	dto := toCouponDTO(c, now)
	return &CouponValidationDTO{
		Valid:    true,
		Code:     c.Code(),
		Coupon:   &dto,
		Discount: c.Discount(orderAmount),
	}, nil
}

// Redeem records one use of couponID. It does not re-check the validity
// window or per-account limits; the global limit is enforced atomically by
// the store.
func (l *CouponLedger) Redeem(ctx context.Context, couponID, accountID uuid.UUID, orderAmount decimal.Decimal) (*RedemptionDTO, error) {
	c, err := l.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, couponDomain.ErrNotFound
		}
		return nil, err
	}

	usage := couponDomain.NewUsage(c.ID(), accountID, orderAmount, c.Discount(orderAmount), l.now())
	if err := l.repo.Redeem(ctx, usage); err != nil {
		return nil, err
	}

	l.logger.Info("coupon redeemed",
		zap.String("coupon_id", c.ID().String()),
		zap.String("account_id", accountID.String()),
		zap.String("discount", usage.DiscountAmount.String()),
	)
	return &RedemptionDTO{
		UsageID:     usage.ID,
		CouponID:    c.ID(),
		Code:        c.Code(),
		AccountID:   accountID,
		OrderAmount: usage.OrderAmount,
		Discount:    usage.DiscountAmount,
		UsedAt:      usage.UsedAt,
	}, nil
}

// Use validates code and redeems it in one call.
func (l *CouponLedger) Use(ctx context.Context, code string, accountID uuid.UUID, orderAmount decimal.Decimal) (*RedemptionDTO, error) {
	v, err := l.Validate(ctx, code, accountID, orderAmount)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		return nil, v.Err()
	}

	r, err := l.Redeem(ctx, v.Coupon.ID, accountID, orderAmount)
	if err != nil {
		return nil, err
	}

	publish(ctx, l.publisher, l.logger, events.CouponRedeemed, accountID.String(), events.CouponRedeemedEvent{
		CouponID:    r.CouponID,
		Code:        r.Code,
		AccountID:   accountID,
		OrderAmount: r.OrderAmount,
		Discount:    r.Discount,
		OccurredAt:  r.UsedAt,
	})
	return r, nil
}

// IssueWeeklyReward returns the account's weekly reward for the current week,
// creating it when none exists. created reports whether a new coupon was made.
func (l *CouponLedger) IssueWeeklyReward(ctx context.Context, accountID uuid.UUID) (*CouponDTO, bool, error) {
	now := l.now()
	start, end := couponDomain.WeekWindow(now)

	existing, err := l.repo.FindWeeklyReward(ctx, accountID, start, end)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		dto := toCouponDTO(existing, now)
		return &dto, false, nil
	}

	for attempt := 1; attempt <= maxWeeklyRewardAttempts; attempt++ {
		c := couponDomain.NewWeeklyReward(accountID, now)
		err := l.repo.Save(ctx, c)
		if err == nil {
			l.afterWeeklyReward(ctx, c)
			dto := toCouponDTO(c, now)
			return &dto, true, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, false, fmt.Errorf("failed to save weekly reward: %w", err)
		}

		// Either a concurrent request won the reward key or the random code collided.
		existing, err := l.repo.FindWeeklyReward(ctx, accountID, start, end)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			dto := toCouponDTO(existing, now)
			return &dto, false, nil
		}
	}
	return nil, false, domain.NewConflictError("could not allocate a unique coupon code")
}

func (l *CouponLedger) afterWeeklyReward(ctx context.Context, c *couponDomain.Coupon) {
	accountID := c.CreatedBy()
	l.logger.Info("weekly reward issued",
		zap.String("account_id", accountID.String()),
		zap.String("coupon_id", c.ID().String()),
	)
	publish(ctx, l.publisher, l.logger, events.CouponWeeklyRewardIssued, accountID.String(), events.WeeklyRewardIssuedEvent{
		CouponID:   c.ID(),
		Code:       c.Code(),
		AccountID:  accountID,
		ValidUntil: c.ValidUntil(),
		OccurredAt: c.CreatedAt(),
	})
	notifyBestEffort(ctx, l.notifier, l.logger, accountID, notificationDomain.TypeCoupon,
		"Weekly Reward", "Your weekly 10% coupon "+c.Code()+" is ready",
		map[string]any{"coupon_id": c.ID().String(), "code": c.Code()},
	)
}

func rejected(code string, r *couponDomain.Rejection) *CouponValidationDTO {
	return &CouponValidationDTO{
		Valid:     false,
		Code:      code,
		Reason:    string(r.Reason),
		Message:   r.Message,
		Discount:  decimal.Zero,
		rejection: r,
	}
}
