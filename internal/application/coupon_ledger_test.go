package application

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couponDomain "github.com/marrakech-reviews/service-community/internal/domain/coupon"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *stack) createCoupon(t *testing.T, req CreateCouponRequest) *CouponDTO {
	t.Helper()
	if req.Title == "" {
		req.Title = "Test coupon"
	}
	if req.ValidFrom == nil {
		from := time.Now().UTC().Add(-time.Hour)
		req.ValidFrom = &from
	}
	if req.ValidUntil == nil {
		until := time.Now().UTC().Add(24 * time.Hour)
		req.ValidUntil = &until
	}
	c, err := s.coupons.Create(t.Context(), uuid.New(), req)
	require.NoError(t, err)
	return c
}

func TestCouponLedger_PercentageCappedByMaxDiscount(t *testing.T) {
	s := newStack(t)
	maxDiscount := dec("50")
	s.createCoupon(t, CreateCouponRequest{Code: "SAVE10", DiscountType: "percentage", DiscountValue: dec("10"), MaxDiscount: &maxDiscount})

	v, err := s.ledger.Validate(t.Context(), " save10 ", uuid.New(), dec("1000"))
	require.NoError(t, err)
	require.True(t, v.Valid, v.Message)
	assert.Equal(t, "SAVE10", v.Code)
	assert.True(t, v.Discount.Equal(dec("50")), v.Discount.String())

	v, err = s.ledger.Validate(t.Context(), "SAVE10", uuid.New(), dec("120"))
	require.NoError(t, err)
	assert.True(t, v.Discount.Equal(dec("12")), v.Discount.String())
}

func TestCouponLedger_FixedDiscountIsNotCappedByOrderAmount(t *testing.T) {
	s := newStack(t)
	s.createCoupon(t, CreateCouponRequest{Code: "FLAT20", DiscountType: "fixed", DiscountValue: dec("20")})

	for _, amount := range []string{"5", "20", "500"} {
		v, err := s.ledger.Validate(t.Context(), "FLAT20", uuid.New(), dec(amount))
		require.NoError(t, err)
		require.True(t, v.Valid)
		assert.True(t, v.Discount.Equal(dec("20")), "order %s discount %s", amount, v.Discount)
	}
}

func TestCouponLedger_ValidateIsPure(t *testing.T) {
	s := newStack(t)
	c := s.createCoupon(t, CreateCouponRequest{Code: "PURE", DiscountType: "percentage", DiscountValue: dec("10"), UsageLimit: 5})
	account := uuid.New()

	first, err := s.ledger.Validate(t.Context(), "PURE", account, dec("100"))
	require.NoError(t, err)
	second, err := s.ledger.Validate(t.Context(), "PURE", account, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, first.Valid, second.Valid)
	assert.True(t, first.Discount.Equal(second.Discount))

	_, total, err := s.coupons.Usage(t.Context(), c.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	list, _, err := s.coupons.List(t.Context(), "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, list[0].UsageCount)
}

func TestCouponLedger_RedeemRecordsExactlyOneUsage(t *testing.T) {
	s := newStack(t)
	c := s.createCoupon(t, CreateCouponRequest{Code: "ONCE", DiscountType: "percentage", DiscountValue: dec("10"), UsageLimit: 10})
	account := uuid.New()

	r, err := s.ledger.Redeem(t.Context(), c.ID, account, dec("200"))
	require.NoError(t, err)
	assert.True(t, r.Discount.Equal(dec("20")))

	usages, total, err := s.coupons.Usage(t.Context(), c.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, account, usages[0].AccountID)

	list, _, err := s.coupons.List(t.Context(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, list[0].UsageCount)
}

func TestCouponLedger_GlobalLimitReached(t *testing.T) {
	s := newStack(t)
	c := s.createCoupon(t, CreateCouponRequest{Code: "LIMITED", DiscountType: "fixed", DiscountValue: dec("5"), UsageLimit: 1})
	_, err := s.ledger.Redeem(t.Context(), c.ID, uuid.New(), dec("50"))
	require.NoError(t, err)

	fresh := uuid.New()
	v, err := s.ledger.Validate(t.Context(), "LIMITED", fresh, dec("50"))
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, string(couponDomain.ReasonGlobalLimitExceeded), v.Reason)

	_, err = s.ledger.Redeem(t.Context(), c.ID, fresh, dec("50"))
	assert.ErrorIs(t, err, couponDomain.ErrGlobalLimitExceeded)
}

func TestCouponLedger_NotApplicableToUser(t *testing.T) {
	s := newStack(t)
	s.createCoupon(t, CreateCouponRequest{
		Code: "VIP", DiscountType: "fixed", DiscountValue: dec("5"),
		ApplicableUsers: []uuid.UUID{uuid.New()},
	})

	v, err := s.ledger.Validate(t.Context(), "VIP", uuid.New(), dec("50"))
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err(), couponDomain.ErrNotApplicableToUser)
}

func TestCouponLedger_RejectionReasons(t *testing.T) {
	s := newStack(t)
	past := time.Now().UTC().Add(-48 * time.Hour)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	nextWeek := time.Now().UTC().Add(7 * 24 * time.Hour)
	off := false

	s.createCoupon(t, CreateCouponRequest{Code: "OFF", DiscountType: "fixed", DiscountValue: dec("5"), IsActive: &off, ValidFrom: &past, ValidUntil: &yesterday})
	s.createCoupon(t, CreateCouponRequest{Code: "OLD", DiscountType: "fixed", DiscountValue: dec("5"), ValidFrom: &past, ValidUntil: &yesterday})
	s.createCoupon(t, CreateCouponRequest{Code: "SOON", DiscountType: "fixed", DiscountValue: dec("5"), ValidFrom: &tomorrow, ValidUntil: &nextWeek})
	s.createCoupon(t, CreateCouponRequest{Code: "BIG", DiscountType: "fixed", DiscountValue: dec("5"), MinOrderAmount: dec("100")})

	tests := []struct {
		code   string
		reason couponDomain.Reason
	}{
		{"MISSING", couponDomain.ReasonNotFound},
		{"OFF", couponDomain.ReasonInactive},
		{"OLD", couponDomain.ReasonExpired},
		{"SOON", couponDomain.ReasonNotYetValid},
		{"BIG", couponDomain.ReasonBelowMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			v, err := s.ledger.Validate(t.Context(), tt.code, uuid.New(), dec("50"))
			require.NoError(t, err)
			assert.False(t, v.Valid)
			assert.Equal(t, string(tt.reason), v.Reason)
		})
	}
}

func TestCouponLedger_UseEnforcesUserLimit(t *testing.T) {
	s := newStack(t)
	s.createCoupon(t, CreateCouponRequest{Code: "WELCOME", DiscountType: "percentage", DiscountValue: dec("15")})
	account := uuid.New()

	r, err := s.ledger.Use(t.Context(), "welcome", account, dec("80"))
	require.NoError(t, err)
	assert.True(t, r.Discount.Equal(dec("12")))
	assert.Contains(t, s.publisher.types(), events.CouponRedeemed)

	_, err = s.ledger.Use(t.Context(), "WELCOME", account, dec("80"))
	assert.ErrorIs(t, err, couponDomain.ErrUserLimitExceeded)

	mine, err := s.coupons.MyUsage(t.Context(), account)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.TotalUsed)
	assert.True(t, mine.TotalSaved.Equal(dec("12")))
}

func TestCouponLedger_WeeklyRewardIdempotentWithinWeek(t *testing.T) {
	s := newStack(t)
	account := uuid.New()

	wednesday := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	s.setClock(wednesday)
	first, created, err := s.ledger.IssueWeeklyReward(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "weekly_reward", first.Kind)
	assert.True(t, first.DiscountValue.Equal(dec("10")))
	require.NotNil(t, first.MaxDiscount)
	assert.True(t, first.MaxDiscount.Equal(dec("50")))
	assert.Equal(t, 1, first.UsageLimit)
	assert.Equal(t, []uuid.UUID{account}, first.ApplicableUsers)
	assert.Equal(t, wednesday.Add(7*24*time.Hour), first.ValidUntil.UTC())

	s.setClock(time.Date(2026, time.January, 11, 23, 59, 0, 0, time.UTC))
	again, created, err := s.ledger.IssueWeeklyReward(t.Context(), account)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	s.setClock(time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC))
	next, created, err := s.ledger.IssueWeeklyReward(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, next.ID)

	assert.Contains(t, s.publisher.types(), events.CouponWeeklyRewardIssued)
}

func TestCouponService_UpdateClearsMaxDiscount(t *testing.T) {
	s := newStack(t)
	maxDiscount := dec("50")
	c := s.createCoupon(t, CreateCouponRequest{Code: "CAPPED", DiscountType: "percentage", DiscountValue: dec("10"), MaxDiscount: &maxDiscount})
	ctx := t.Context()

	other := dec("20")
	_, err := s.coupons.Update(ctx, c.ID, UpdateCouponRequest{MaxDiscount: &other, ClearMaxDiscount: true})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	title := "Uncapped"
	updated, err := s.coupons.Update(ctx, c.ID, UpdateCouponRequest{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated.MaxDiscount, "omitted fields keep the cap")

	updated, err = s.coupons.Update(ctx, c.ID, UpdateCouponRequest{ClearMaxDiscount: true})
	require.NoError(t, err)
	assert.Nil(t, updated.MaxDiscount)

	v, err := s.ledger.Validate(ctx, "CAPPED", uuid.New(), dec("1000"))
	require.NoError(t, err)
	require.True(t, v.Valid, v.Message)
	assert.True(t, v.Discount.Equal(dec("100")), v.Discount.String())
}
