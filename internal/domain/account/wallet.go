package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

// Transaction is an immutable wallet ledger entry.
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// NewTransaction creates a ledger entry stamped now.
func NewTransaction(accountID uuid.UUID, typ TransactionType, amount decimal.Decimal, description string) Transaction {
	return Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// RewardAction is a community action that earns coins.
type RewardAction string

const (
	RewardReviewApproved   RewardAction = "review_approved"
	RewardArticlePublished RewardAction = "article_published"
	RewardHelpfulReview    RewardAction = "helpful_review"
	RewardDailyLogin       RewardAction = "daily_login"
)

// WelcomeBonus is credited to every new account.
var WelcomeBonus = decimal.NewFromInt(100)

var rewardAmounts = map[RewardAction]decimal.Decimal{
	RewardReviewApproved:   decimal.NewFromInt(10),
	RewardArticlePublished: decimal.NewFromInt(25),
	RewardHelpfulReview:    decimal.NewFromInt(5),
	RewardDailyLogin:       decimal.NewFromInt(2),
}

// RewardAmount returns the coins earned for action.
func RewardAmount(action RewardAction) (decimal.Decimal, bool) {
	amount, ok := rewardAmounts[action]
	return amount, ok
}

// RewardDescription is the ledger description for a reward.
func RewardDescription(action RewardAction) string {
	switch action {
	case RewardReviewApproved:
		return "Reward for approved review"
	case RewardArticlePublished:
		return "Reward for published article"
	case RewardHelpfulReview:
		return "Reward for helpful review"
	case RewardDailyLogin:
		return "Daily login reward"
	}
	return "Reward"
}
