package coupon

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/pkg/domain"
)

var (
	jan1  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 = time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	mid   = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newSave10(t *testing.T) *Coupon {
	t.Helper()
	c, err := New(Params{
		Code:          " save10 ",
		Title:         "Save 10",
		DiscountType:  DiscountTypePercentage,
		DiscountValue: d(10),
		MaxDiscount:   decimal.NewNullDecimal(d(50)),
		ValidFrom:     jan1,
		ValidUntil:    jan31,
		UsageLimit:    100,
		UserLimit:     1,
		IsActive:      true,
	})
	require.NoError(t, err)
	return c
}

func TestNew_NormalizesAndDefaults(t *testing.T) {
	c := newSave10(t)
	assert.Equal(t, "SAVE10", c.Code())
	assert.Equal(t, KindDiscount, c.Kind())

	c2, err := New(Params{Code: "x", Title: "X", DiscountType: DiscountTypeFixed, DiscountValue: d(5), IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, c2.UserLimit())
	assert.WithinDuration(t, c2.ValidFrom().Add(30*24*time.Hour), c2.ValidUntil(), time.Second)
}

func TestNew_Validation(t *testing.T) {
	base := Params{Code: "C", Title: "T", DiscountType: DiscountTypePercentage, DiscountValue: d(10), ValidFrom: jan1, ValidUntil: jan31}

	cases := map[string]func(p *Params){
		"empty code":        func(p *Params) { p.Code = "  " },
		"missing title":     func(p *Params) { p.Title = "" },
		"bad type":          func(p *Params) { p.DiscountType = "bogo" },
		"zero value":        func(p *Params) { p.DiscountValue = decimal.Zero },
		"over 100 percent":  func(p *Params) { p.DiscountValue = d(101) },
		"window reversed":   func(p *Params) { p.ValidUntil = jan1.Add(-time.Hour) },
		"negative limit":    func(p *Params) { p.UsageLimit = -1 },
		"zero max discount": func(p *Params) { p.MaxDiscount = decimal.NewNullDecimal(decimal.Zero) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := New(p)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestDiscount(t *testing.T) {
	save10 := newSave10(t)
	assert.True(t, save10.Discount(d(1000)).Equal(d(50)), "capped at max discount")
	assert.True(t, save10.Discount(d(200)).Equal(d(20)))
	assert.True(t, save10.Discount(decimal.RequireFromString("99.99")).Equal(decimal.RequireFromString("10")))

	fixed, err := New(Params{Code: "FIX20", Title: "Fix", DiscountType: DiscountTypeFixed, DiscountValue: d(20), IsActive: true})
	require.NoError(t, err)
	for _, amount := range []int64{0, 5, 20, 1000} {
		assert.True(t, fixed.Discount(d(amount)).Equal(d(20)), "fixed discount for order %d", amount)
	}
}

func TestDiscount_FixedIsNotCappedByOrderAmount(t *testing.T) {
	fixed, err := New(Params{Code: "FIX20", Title: "Fix", DiscountType: DiscountTypeFixed, DiscountValue: d(20), IsActive: true})
	require.NoError(t, err)

	discount := fixed.Discount(d(15))
	assert.True(t, discount.GreaterThan(d(15)))
}

func TestEvaluate_Order(t *testing.T) {
	account := uuid.New()
	other := uuid.New()

	cases := []struct {
		name   string
		coupon *Coupon
		now    time.Time
		amount decimal.Decimal
		used   int
		want   *Rejection
	}{
		{"inactive beats expired", withState(false, 0, 10, nil), jan31.Add(time.Hour), d(0), 0, ErrInactive},
		{"not yet valid", withState(true, 0, 0, nil), jan1.Add(-time.Second), d(100), 0, ErrNotYetValid},
		{"expired at bound", withState(true, 0, 0, nil), jan31, d(100), 0, ErrExpired},
		{"global limit", withState(true, 1, 1, nil), mid, d(100), 0, ErrGlobalLimitExceeded},
		{"below minimum", withState(true, 0, 0, nil), mid, d(10), 0, ErrBelowMinimum},
		{"not applicable", withState(true, 0, 0, []uuid.UUID{other}), mid, d(100), 0, ErrNotApplicableToUser},
		{"user limit", withState(true, 0, 0, []uuid.UUID{account}), mid, d(100), 1, ErrUserLimitExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.coupon.Evaluate(tc.now, account, tc.amount, tc.used)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var rej *Rejection
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tc.want.Reason, rej.Reason)
		})
	}
}

func TestEvaluate_Admits(t *testing.T) {
	c := withState(true, 3, 10, nil)
	assert.NoError(t, c.Evaluate(jan1, uuid.New(), d(50), 0))
	assert.NoError(t, c.Evaluate(jan31.Add(-time.Nanosecond), uuid.New(), d(50), 0))
}

func TestEvaluate_BelowMinimumMessage(t *testing.T) {
	err := withState(true, 0, 0, nil).Evaluate(mid, uuid.New(), d(10), 0)
	assert.EqualError(t, err, "minimum order amount is 50.00")
}

func TestUpdate(t *testing.T) {
	c := withState(true, 5, 10, nil)

	title := "Ramadan Deal"
	require.NoError(t, c.Update(UpdateParams{Title: &title}))
	assert.Equal(t, "Ramadan Deal", c.Title())
	assert.Equal(t, 5, c.UsageCount())

	lower := 4
	err := c.Update(UpdateParams{UsageLimit: &lower})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, 10, c.UsageLimit(), "failed update leaves coupon unchanged")
}

func TestStatusAt(t *testing.T) {
	assert.Equal(t, StatusActive, withState(true, 0, 0, nil).StatusAt(mid))
	assert.Equal(t, StatusInactive, withState(false, 0, 0, nil).StatusAt(mid))
	assert.Equal(t, StatusExpired, withState(true, 0, 0, nil).StatusAt(jan31))
}

func TestWeekWindow(t *testing.T) {
	cases := []struct {
		now   time.Time
		start time.Time
	}{
		{time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 7, 13, 30, 0, 0, time.UTC), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 11, 23, 59, 59, 0, time.UTC), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		start, end := WeekWindow(tc.now)
		assert.Equal(t, tc.start, start, tc.now.String())
		assert.Equal(t, tc.start.AddDate(0, 0, 7), end)
		assert.Equal(t, time.Monday, start.Weekday())
	}
}

func TestNewWeeklyReward(t *testing.T) {
	account := uuid.New()
	now := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)

	c := NewWeeklyReward(account, now)
	assert.Equal(t, KindWeeklyReward, c.Kind())
	assert.Len(t, c.Code(), 8)
	assert.Equal(t, 1, c.UsageLimit())
	assert.Equal(t, 1, c.UserLimit())
	assert.Equal(t, []uuid.UUID{account}, c.ApplicableAccounts())
	assert.Equal(t, now.Add(7*24*time.Hour), c.ValidUntil())
	assert.Equal(t, account.String()+":2026-01-05", c.RewardKey())
	assert.True(t, c.Discount(d(1000)).Equal(d(50)))
	assert.NoError(t, c.Evaluate(now, account, d(10), 0))
	assert.ErrorIs(t, c.Evaluate(now, uuid.New(), d(10), 0), ErrNotApplicableToUser)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		assert.Regexp(t, `^[A-Z0-9]{8}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestGenerateCode_DiscardsBiasedBytes(t *testing.T) {
	// 252..255 would map onto A..D a second time.
	src := []byte{252, 253, 254, 255, 0, 35, 36, 71, 72, 251, 1, 2}
	src = append(src, make([]byte, 16)...)

	code, err := generateCode(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "A9A9A9BC", code)
	assert.Equal(t, 252, codeByteLimit)

	_, err = generateCode(bytes.NewReader([]byte{255, 255, 255}))
	assert.Error(t, err)
}

func withState(active bool, usageCount, usageLimit int, audience []uuid.UUID) *Coupon {
	return Reconstruct(
		uuid.New(), "TEST", "Test", "", KindDiscount,
		DiscountTypePercentage, d(10), decimal.NullDecimal{}, d(50),
		jan1, jan31, usageLimit, usageCount, 1,
		audience, active, "",
		uuid.Nil, jan1, jan1,
	)
}
