package coupon

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	weeklyRewardPercent     = 10
	weeklyRewardMaxDiscount = 50
	weeklyRewardValidity    = 7 * 24 * time.Hour
	codeLength              = 8
	codeAlphabet            = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Bytes at or above this are discarded so every symbol is equally likely.
	codeByteLimit = 256 - 256%len(codeAlphabet)
)

// WeekWindow returns [Monday 00:00 UTC, next Monday 00:00 UTC) containing now.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day()-daysSinceMonday, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

// RewardKey identifies the weekly reward of one account for one week.
func RewardKey(accountID uuid.UUID, weekStart time.Time) string {
	return accountID.String() + ":" + weekStart.UTC().Format("2006-01-02")
}

// NewWeeklyReward creates the weekly 10% coupon for accountID, valid for
// seven days from now and usable once, by that account only.
func NewWeeklyReward(accountID uuid.UUID, now time.Time) *Coupon {
	now = now.UTC()
	weekStart, _ := WeekWindow(now)
	return &Coupon{
		id:                 uuid.New(),
		code:               GenerateCode(),
		title:              "Weekly Reward",
		description:        "Your weekly 10% discount coupon",
		kind:               KindWeeklyReward,
		discountType:       DiscountTypePercentage,
		discountValue:      decimal.NewFromInt(weeklyRewardPercent),
		maxDiscount:        decimal.NewNullDecimal(decimal.NewFromInt(weeklyRewardMaxDiscount)),
		minOrderAmount:     decimal.Zero,
		validFrom:          now,
		validUntil:         now.Add(weeklyRewardValidity),
		usageLimit:         1,
		userLimit:          1,
		applicableAccounts: []uuid.UUID{accountID},
		isActive:           true,
		rewardKey:          RewardKey(accountID, weekStart),
		createdBy:          accountID,
		createdAt:          now,
		updatedAt:          now,
	}
}

// GenerateCode returns a random 8 character upper-case alphanumeric code.
func GenerateCode() string {
	code, err := generateCode(rand.Reader)
	if err != nil {
		panic(err)
	}
	return code
}

func generateCode(r io.Reader) (string, error) {
	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(code) < codeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= codeByteLimit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return string(code), nil
}
