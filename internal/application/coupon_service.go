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
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

const (
	popularCoupons          = 5
	maxGeneratedCodeRetries = 3
)

// CreateCouponRequest holds the data to create a coupon. A missing code is generated.
type CreateCouponRequest struct {
	Code            string           `json:"code"`
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	DiscountType    string           `json:"discount_type" binding:"required"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MaxDiscount     *decimal.Decimal `json:"max_discount"`
	MinOrderAmount  decimal.Decimal  `json:"min_order_amount"`
	ValidFrom       *time.Time       `json:"valid_from"`
	ValidUntil      *time.Time       `json:"valid_until"`
	UsageLimit      int              `json:"usage_limit"`
	UserLimit       int              `json:"user_limit"`
	ApplicableUsers []uuid.UUID      `json:"applicable_users"`
	IsActive        *bool            `json:"is_active"`
}

// UpdateCouponRequest changes coupon fields. Omitted fields are unchanged.
// ClearMaxDiscount removes the percentage cap and cannot be combined with
// MaxDiscount.
type UpdateCouponRequest struct {
	Title            *string          `json:"title"`
	Description      *string          `json:"description"`
	DiscountType     *string          `json:"discount_type"`
	DiscountValue    *decimal.Decimal `json:"discount_value"`
	MaxDiscount      *decimal.Decimal `json:"max_discount"`
	ClearMaxDiscount bool             `json:"clear_max_discount"`
	MinOrderAmount   *decimal.Decimal `json:"min_order_amount"`
	ValidFrom        *time.Time       `json:"valid_from"`
	ValidUntil       *time.Time       `json:"valid_until"`
	UsageLimit       *int             `json:"usage_limit"`
	UserLimit        *int             `json:"user_limit"`
	ApplicableUsers  *[]uuid.UUID     `json:"applicable_users"`
	IsActive         *bool            `json:"is_active"`
}

// CouponDTO is the API representation of a coupon.
type CouponDTO struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Kind            string           `json:"kind"`
	DiscountType    string           `json:"discount_type"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MaxDiscount     *decimal.Decimal `json:"max_discount,omitempty"`
	MinOrderAmount  decimal.Decimal  `json:"min_order_amount"`
	ValidFrom       time.Time        `json:"valid_from"`
	ValidUntil      time.Time        `json:"valid_until"`
	UsageLimit      int              `json:"usage_limit"`
	UsageCount      int              `json:"usage_count"`
	UserLimit       int              `json:"user_limit"`
	ApplicableUsers []uuid.UUID      `json:"applicable_users,omitempty"`
	IsActive        bool             `json:"is_active"`
	Status          string           `json:"status"`
	CreatedBy       uuid.UUID        `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CouponUsageDTO is one entry of a coupon's usage ledger.
type CouponUsageDTO struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"user_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	Discount    decimal.Decimal `json:"discount"`
	UsedAt      time.Time       `json:"used_at"`
}

// CouponStatsDTO summarizes coupon activity.
type CouponStatsDTO struct {
	TotalCoupons  int64              `json:"total_coupons"`
	ActiveCoupons int64              `json:"active_coupons"`
	TotalUsage    int64              `json:"total_usage"`
	TotalSavings  decimal.Decimal    `json:"total_savings"`
	MostPopular   []PopularCouponDTO `json:"most_popular"`
}

// PopularCouponDTO is a coupon ranked by usage.
type PopularCouponDTO struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	UsageCount int       `json:"usage_count"`
}

// MyCouponUsageDTO summarizes the caller's redemptions.
type MyCouponUsageDTO struct {
	TotalUsed  int64           `json:"total_used"`
	TotalSaved decimal.Decimal `json:"total_saved"`
	LastUsedAt *time.Time      `json:"last_used_at,omitempty"`
}

// CouponService handles coupon administration and listings.
type CouponService struct {
	repo   couponDomain.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo couponDomain.Repository, logger *zap.Logger) *CouponService {
	return &CouponService{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new discount coupon.
func (s *CouponService) Create(ctx context.Context, adminID uuid.UUID, req CreateCouponRequest) (*CouponDTO, error) {
	params := couponDomain.Params{
		Code:               req.Code,
		Title:              req.Title,
		Description:        req.Description,
		DiscountType:       couponDomain.DiscountType(req.DiscountType),
		DiscountValue:      req.DiscountValue,
		MinOrderAmount:     req.MinOrderAmount,
		UsageLimit:         req.UsageLimit,
		UserLimit:          req.UserLimit,
		ApplicableAccounts: req.ApplicableUsers,
		IsActive:           true,
		CreatedBy:          adminID,
	}
	if req.MaxDiscount != nil {
		params.MaxDiscount = decimal.NewNullDecimal(*req.MaxDiscount)
	}
	if req.ValidFrom != nil {
		params.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		params.ValidUntil = *req.ValidUntil
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	generated := couponDomain.NormalizeCode(req.Code) == ""
	for attempt := 1; ; attempt++ {
		if generated {
			params.Code = couponDomain.GenerateCode()
		}
		c, err := couponDomain.New(params)
		if err != nil {
			return nil, err
		}
		err = s.repo.Save(ctx, c)
		if err == nil {
			s.logger.Info("coupon created", zap.String("code", c.Code()), zap.String("admin_id", adminID.String()))
			dto := toCouponDTO(c, s.now())
			return &dto, nil
		}
		if !generated || !errors.Is(err, domain.ErrConflict) || attempt == maxGeneratedCodeRetries {
			return nil, err
		}
	}
}

// Update changes a coupon. Usage count, creator and creation time are immutable.
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, req UpdateCouponRequest) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := couponDomain.UpdateParams{
		Title:              req.Title,
		Description:        req.Description,
		DiscountValue:      req.DiscountValue,
		MinOrderAmount:     req.MinOrderAmount,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		UsageLimit:         req.UsageLimit,
		UserLimit:          req.UserLimit,
		ApplicableAccounts: req.ApplicableUsers,
		IsActive:           req.IsActive,
	}
	if req.DiscountType != nil {
		dt := couponDomain.DiscountType(*req.DiscountType)
		p.DiscountType = &dt
	}
	switch {
	case req.ClearMaxDiscount && req.MaxDiscount != nil:
		return nil, domain.NewValidationError("max_discount and clear_max_discount are mutually exclusive")
	case req.ClearMaxDiscount:
		p.MaxDiscount = &decimal.NullDecimal{}
	case req.MaxDiscount != nil:
		md := decimal.NewNullDecimal(*req.MaxDiscount)
		p.MaxDiscount = &md
	}
	if err := c.Update(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon updated", zap.String("coupon_id", id.String()))
	dto := toCouponDTO(c, s.now())
	return &dto, nil
}

// Delete removes a coupon. Its usage ledger is kept.
func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("coupon deleted", zap.String("coupon_id", id.String()))
	return nil
}

// List returns coupons optionally filtered by status.
func (s *CouponService) List(ctx context.Context, status string, page, limit int) ([]CouponDTO, int64, error) {
	filter := couponDomain.ListFilter{Now: s.now()}
	switch st := couponDomain.Status(status); st {
	case "":
	case couponDomain.StatusActive, couponDomain.StatusInactive, couponDomain.StatusExpired:
		filter.Status = st
	default:
		return nil, 0, domain.NewValidationError("invalid status: " + status)
	}

	coupons, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toCouponDTOs(coupons, filter.Now), total, nil
}

// Available returns coupons the account could redeem now.
func (s *CouponService) Available(ctx context.Context, accountID uuid.UUID) ([]CouponDTO, error) {
	now := s.now()
	coupons, err := s.repo.ListAvailable(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	return toCouponDTOs(coupons, now), nil
}

// Usage returns the usage ledger of one coupon.
func (s *CouponService) Usage(ctx context.Context, id uuid.UUID, page, limit int) ([]CouponUsageDTO, int64, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}
	usages, total, err := s.repo.ListUsage(ctx, id, page, limit)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]CouponUsageDTO, len(usages))
	for i, u := range usages {
		dtos[i] = CouponUsageDTO{
			ID:          u.ID,
			AccountID:   u.AccountID,
			OrderAmount: u.OrderAmount,
			Discount:    u.DiscountAmount,
			UsedAt:      u.UsedAt,
		}
	}
	return dtos, total, nil
}

// MyUsage summarizes the account's own redemptions.
func (s *CouponService) MyUsage(ctx context.Context, accountID uuid.UUID) (*MyCouponUsageDTO, error) {
	stats, err := s.repo.AccountUsageStats(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &MyCouponUsageDTO{TotalUsed: stats.TotalUsed, TotalSaved: stats.TotalSaved, LastUsedAt: stats.LastUsedAt}, nil
}

// Stats returns coupon totals and the most used coupons.
func (s *CouponService) Stats(ctx context.Context) (*CouponStatsDTO, error) {
	stats, err := s.repo.Stats(ctx, s.now(), popularCoupons)
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon stats: %w", err)
	}
	dto := &CouponStatsDTO{
		TotalCoupons:  stats.Total,
		ActiveCoupons: stats.Active,
		TotalUsage:    stats.TotalUsage,
		TotalSavings:  stats.TotalSavings,
		MostPopular:   make([]PopularCouponDTO, len(stats.MostPopular)),
	}
	for i, p := range stats.MostPopular {
		dto.MostPopular[i] = PopularCouponDTO{ID: p.ID, Code: p.Code, Title: p.Title, UsageCount: p.UsageCount}
	}
	return dto, nil
}

func toCouponDTO(c *couponDomain.Coupon, now time.Time) CouponDTO {
	dto := CouponDTO{
		ID:              c.ID(),
		Code:            c.Code(),
		Title:           c.Title(),
		Description:     c.Description(),
		Kind:            string(c.Kind()),
		DiscountType:    string(c.DiscountType()),
		DiscountValue:   c.DiscountValue(),
		MinOrderAmount:  c.MinOrderAmount(),
		ValidFrom:       c.ValidFrom(),
		ValidUntil:      c.ValidUntil(),
		UsageLimit:      c.UsageLimit(),
		UsageCount:      c.UsageCount(),
		UserLimit:       c.UserLimit(),
		ApplicableUsers: c.ApplicableAccounts(),
		IsActive:        c.IsActive(),
		Status:          string(c.StatusAt(now)),
		CreatedBy:       c.CreatedBy(),
		CreatedAt:       c.CreatedAt(),
		UpdatedAt:       c.UpdatedAt(),
	}
	if md := c.MaxDiscount(); md.Valid {
		v := md.Decimal
		dto.MaxDiscount = &v
	}
	return dto
}

func toCouponDTOs(coupons []*couponDomain.Coupon, now time.Time) []CouponDTO {
	dtos := make([]CouponDTO, len(coupons))
	for i, c := range coupons {
		dtos[i] = toCouponDTO(c, now)
	}
	return dtos
}
