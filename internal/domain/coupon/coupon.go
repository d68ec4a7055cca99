package coupon

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// Kind separates admin-created discounts from generated weekly rewards.
type Kind string

const (
	KindDiscount     Kind = "discount"
	KindWeeklyReward Kind = "weekly_reward"
)

// DiscountType represents the type of discount.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Status is the listing state of a coupon at a point in time.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

const (
	defaultValidity = 30 * 24 * time.Hour
	maxCodeLength   = 50
)

// Coupon is the aggregate root for promotional codes.
type Coupon struct {
	id                 uuid.UUID
	code               string
	title              string
	description        string
	kind               Kind
	discountType       DiscountType
	discountValue      decimal.Decimal
	maxDiscount        decimal.NullDecimal
	minOrderAmount     decimal.Decimal
	validFrom          time.Time
	validUntil         time.Time
	usageLimit         int
	usageCount         int
	userLimit          int
	applicableAccounts []uuid.UUID
	isActive           bool
	rewardKey          string
	createdBy          uuid.UUID
	createdAt          time.Time
	updatedAt          time.Time
}

// Params holds the admin-supplied fields of a new coupon.
type Params struct {
	Code               string
	Title              string
	Description        string
	DiscountType       DiscountType
	DiscountValue      decimal.Decimal
	MaxDiscount        decimal.NullDecimal
	MinOrderAmount     decimal.Decimal
	ValidFrom          time.Time
	ValidUntil         time.Time
	UsageLimit         int
	UserLimit          int
	ApplicableAccounts []uuid.UUID
	IsActive           bool
	CreatedBy          uuid.UUID
}

// New creates a discount coupon. A zero ValidFrom means now, a zero ValidUntil
// means 30 days after ValidFrom, and a zero UserLimit means once per account.
func New(p Params) (*Coupon, error) {
	now := time.Now().UTC()
	if p.ValidFrom.IsZero() {
		p.ValidFrom = now
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = p.ValidFrom.Add(defaultValidity)
	}
	if p.UserLimit == 0 {
		p.UserLimit = 1
	}

	c := &Coupon{
		id:                 uuid.New(),
		code:               NormalizeCode(p.Code),
		title:              strings.TrimSpace(p.Title),
		description:        strings.TrimSpace(p.Description),
		kind:               KindDiscount,
		discountType:       p.DiscountType,
		discountValue:      p.DiscountValue,
		maxDiscount:        p.MaxDiscount,
		minOrderAmount:     p.MinOrderAmount,
		validFrom:          p.ValidFrom.UTC(),
		validUntil:         p.ValidUntil.UTC(),
		usageLimit:         p.UsageLimit,
		userLimit:          p.UserLimit,
		applicableAccounts: dedupe(p.ApplicableAccounts),
		isActive:           p.IsActive,
		createdBy:          p.CreatedBy,
		createdAt:          now,
		updatedAt:          now,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconstruct rebuilds a Coupon from persistence.
func Reconstruct(
	id uuid.UUID, code, title, description string, kind Kind,
	discountType DiscountType, discountValue decimal.Decimal, maxDiscount decimal.NullDecimal, minOrderAmount decimal.Decimal,
	validFrom, validUntil time.Time, usageLimit, usageCount, userLimit int,
	applicableAccounts []uuid.UUID, isActive bool, rewardKey string,
	createdBy uuid.UUID, createdAt, updatedAt time.Time,
) *Coupon {
	return &Coupon{
		id: id, code: code, title: title, description: description, kind: kind,
		discountType: discountType, discountValue: discountValue, maxDiscount: maxDiscount, minOrderAmount: minOrderAmount,
		validFrom: validFrom, validUntil: validUntil,
		usageLimit: usageLimit, usageCount: usageCount, userLimit: userLimit,
		applicableAccounts: applicableAccounts, isActive: isActive, rewardKey: rewardKey,
		createdBy: createdBy, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// NormalizeCode trims and upper-cases a code as entered by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) validate() error {
	switch {
	case c.code == "":
		return domain.NewValidationError("coupon code is required")
	case len(c.code) > maxCodeLength:
		return domain.NewValidationError("coupon code is too long")
	case c.title == "":
		return domain.NewValidationError("title is required")
	case c.discountType != DiscountTypePercentage && c.discountType != DiscountTypeFixed:
		return domain.NewValidationError("invalid discount type: " + string(c.discountType))
	case !c.discountValue.IsPositive():
		return domain.NewValidationError("discount value must be positive")
	case c.discountType == DiscountTypePercentage && c.discountValue.GreaterThan(decimal.NewFromInt(100)):
		return domain.NewValidationError("percentage discount cannot exceed 100")
	case c.maxDiscount.Valid && !c.maxDiscount.Decimal.IsPositive():
		return domain.NewValidationError("max discount must be positive")
	case c.minOrderAmount.IsNegative():
		return domain.NewValidationError("min order amount cannot be negative")
	case !c.validUntil.After(c.validFrom):
		return domain.NewValidationError("valid_until must be after valid_from")
	case c.usageLimit < 0:
		return domain.NewValidationError("usage limit cannot be negative")
	case c.usageLimit > 0 && c.usageLimit < c.usageCount:
		return domain.NewValidationError("usage limit cannot be lower than the current usage count")
	case c.userLimit < 1:
		return domain.NewValidationError("user limit must be at least 1")
	}
	return nil
}

// UpdateParams carries the fields an admin may change. Nil means unchanged.
// Usage count, creator and creation time are not updatable.
type UpdateParams struct {
	Title              *string
	Description        *string
	DiscountType       *DiscountType
	DiscountValue      *decimal.Decimal
	MaxDiscount        *decimal.NullDecimal
	MinOrderAmount     *decimal.Decimal
	ValidFrom          *time.Time
	ValidUntil         *time.Time
	UsageLimit         *int
	UserLimit          *int
	ApplicableAccounts *[]uuid.UUID
	IsActive           *bool
}

// Update applies p and re-validates. On error the coupon is left unchanged.
func (c *Coupon) Update(p UpdateParams) error {
	next := *c
	if p.Title != nil {
		next.title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		next.description = strings.TrimSpace(*p.Description)
	}
	if p.DiscountType != nil {
		next.discountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		next.discountValue = *p.DiscountValue
	}
	if p.MaxDiscount != nil {
		next.maxDiscount = *p.MaxDiscount
	}
	if p.MinOrderAmount != nil {
		next.minOrderAmount = *p.MinOrderAmount
	}
	if p.ValidFrom != nil {
		next.validFrom = p.ValidFrom.UTC()
	}
	if p.ValidUntil != nil {
		next.validUntil = p.ValidUntil.UTC()
	}
	if p.UsageLimit != nil {
		next.usageLimit = *p.UsageLimit
	}
	if p.UserLimit != nil {
		next.userLimit = *p.UserLimit
	}
	if p.ApplicableAccounts != nil {
		next.applicableAccounts = dedupe(*p.ApplicableAccounts)
	}
	if p.IsActive != nil {
		next.isActive = *p.IsActive
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.updatedAt = time.Now().UTC()
	*c = next
	return nil
}

// Evaluate decides whether accountID may redeem the coupon at now for
// orderAmount, given how many times the account already used it. Checks run
// in a fixed order and the first failure is returned as a *Rejection.
func (c *Coupon) Evaluate(now time.Time, accountID uuid.UUID, orderAmount decimal.Decimal, usedByAccount int) error {
	switch {
	case !c.isActive:
		return ErrInactive
	case now.Before(c.validFrom):
		return ErrNotYetValid
	case !now.Before(c.validUntil):
		return ErrExpired
	case c.usageLimit > 0 && c.usageCount >= c.usageLimit:
		return ErrGlobalLimitExceeded
	case orderAmount.LessThan(c.minOrderAmount):
		return reject(ErrBelowMinimum, "minimum order amount is "+c.minOrderAmount.StringFixed(2))
	case !c.AppliesTo(accountID):
		return ErrNotApplicableToUser
	case usedByAccount >= c.userLimit:
		return ErrUserLimitExceeded
	}
	return nil
}

// AppliesTo reports whether accountID is allowed by the audience restriction.
func (c *Coupon) AppliesTo(accountID uuid.UUID) bool {
	return len(c.applicableAccounts) == 0 || slices.Contains(c.applicableAccounts, accountID)
}

// Discount computes the discount for orderAmount. Percentage discounts are
// capped by the max discount when one is set. Fixed discounts are the fixed
// value even when it exceeds the order amount.
func (c *Coupon) Discount(orderAmount decimal.Decimal) decimal.Decimal {
	if c.discountType == DiscountTypeFixed {
		return c.discountValue
	}
	discount := orderAmount.Mul(c.discountValue).Div(decimal.NewFromInt(100)).Round(2)
	if c.maxDiscount.Valid && discount.GreaterThan(c.maxDiscount.Decimal) {
		discount = c.maxDiscount.Decimal
	}
	return discount
}

// StatusAt classifies the coupon for listings.
func (c *Coupon) StatusAt(now time.Time) Status {
	switch {
	case !now.Before(c.validUntil):
		return StatusExpired
	case !c.isActive:
		return StatusInactive
	default:
		return StatusActive
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Getters.
func (c *Coupon) ID() uuid.UUID                    { return c.id }
func (c *Coupon) Code() string                     { return c.code }
func (c *Coupon) Title() string                    { return c.title }
func (c *Coupon) Description() string              { return c.description }
func (c *Coupon) Kind() Kind                       { return c.kind }
func (c *Coupon) DiscountType() DiscountType       { return c.discountType }
func (c *Coupon) DiscountValue() decimal.Decimal   { return c.discountValue }
func (c *Coupon) MaxDiscount() decimal.NullDecimal { return c.maxDiscount }
func (c *Coupon) MinOrderAmount() decimal.Decimal  { return c.minOrderAmount }
func (c *Coupon) ValidFrom() time.Time             { return c.validFrom }
func (c *Coupon) ValidUntil() time.Time            { return c.validUntil }
func (c *Coupon) UsageLimit() int                  { return c.usageLimit }
func (c *Coupon) UsageCount() int                  { return c.usageCount }
func (c *Coupon) UserLimit() int                   { return c.userLimit }
func (c *Coupon) ApplicableAccounts() []uuid.UUID  { return slices.Clone(c.applicableAccounts) }
func (c *Coupon) IsActive() bool                   { return c.isActive }
func (c *Coupon) RewardKey() string                { return c.rewardKey }
func (c *Coupon) CreatedBy() uuid.UUID             { return c.createdBy }
func (c *Coupon) CreatedAt() time.Time             { return c.createdAt }
func (c *Coupon) UpdatedAt() time.Time             { return c.updatedAt }
