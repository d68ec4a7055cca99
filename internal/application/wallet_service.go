package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	notificationDomain "github.com/marrakech-reviews/service-community/internal/domain/notification"
	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

const recentTransactions = 10

// AddCoinsRequest credits an account on behalf of an admin.
type AddCoinsRequest struct {
	AccountID   uuid.UUID       `json:"user_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// SpendRequest debits the caller's wallet.
type SpendRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// RewardRequest names the community action being rewarded.
type RewardRequest struct {
	Action string `json:"action" binding:"required"`
}

// TransactionDTO is the API representation of a wallet ledger entry.
type TransactionDTO struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WalletDTO is a balance with the latest ledger entries.
type WalletDTO struct {
	AccountID          uuid.UUID        `json:"user_id"`
	Balance            decimal.Decimal  `json:"balance"`
	RecentTransactions []TransactionDTO `json:"recent_transactions"`
}

// BalanceChangeDTO is the result of a credit or debit.
type BalanceChangeDTO struct {
	Transaction TransactionDTO  `json:"transaction"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

// WalletStatsDTO summarizes coins in circulation.
type WalletStatsDTO struct {
	Accounts       int64                       `json:"accounts"`
	TotalBalance   decimal.Decimal             `json:"total_balance"`
	AverageBalance decimal.Decimal             `json:"average_balance"`
	Transactions   map[string]TransactionTotal `json:"transactions"`
}

// TransactionTotal is the count and sum of one transaction type.
type TransactionTotal struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

// WalletService handles wallet use cases.
type WalletService struct {
	accounts  accountDomain.Repository
	wallet    accountDomain.WalletRepository
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	accounts accountDomain.Repository,
	wallet accountDomain.WalletRepository,
	notifier Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		accounts:  accounts,
		wallet:    wallet,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// GetWallet returns the balance and the latest transactions.
func (s *WalletService) GetWallet(ctx context.Context, accountID uuid.UUID) (*WalletDTO, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs, _, err := s.wallet.ListTransactions(ctx, accountID, "", 1, recentTransactions)
	if err != nil {
		return nil, err
	}
	return &WalletDTO{
		AccountID:          acc.ID(),
		Balance:            acc.Balance(),
		RecentTransactions: toTransactionDTOs(txs),
	}, nil
}

// Balance returns the current balance.
func (s *WalletService) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance(), nil
}

// Transactions returns the ledger newest first, optionally filtered by type.
func (s *WalletService) Transactions(ctx context.Context, accountID uuid.UUID, typ string, page, limit int) ([]TransactionDTO, int64, error) {
	t := accountDomain.TransactionType(typ)
	if typ != "" && !t.Valid() {
		return nil, 0, domain.NewValidationError("invalid transaction type: " + typ)
	}
	txs, total, err := s.wallet.ListTransactions(ctx, accountID, t, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toTransactionDTOs(txs), total, nil
}

// AddCoins credits an account and notifies it.
func (s *WalletService) AddCoins(ctx context.Context, adminID uuid.UUID, req AddCoinsRequest) (*BalanceChangeDTO, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = "Coins added by admin"
	}

	result, err := s.credit(ctx, req.AccountID, req.Amount, description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("coins added",
		zap.String("admin_id", adminID.String()),
		zap.String("account_id", req.AccountID.String()),
		zap.String("amount", req.Amount.String()),
	)
	notifyBestEffort(ctx, s.notifier, s.logger, req.AccountID, notificationDomain.TypeWallet,
		"Coins Added", "You received "+req.Amount.String()+" coins: "+description,
		map[string]any{"amount": req.Amount.String(), "transaction_id": result.Transaction.ID.String()},
	)
	return result, nil
}

// Spend debits the caller's wallet if the balance covers amount.
func (s *WalletService) Spend(ctx context.Context, accountID uuid.UUID, req SpendRequest) (*BalanceChangeDTO, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = "Coins spent"
	}

	tx, balance, err := s.wallet.Debit(ctx, accountID, req.Amount, description)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.WalletDebited, accountID.String(), events.WalletChangedEvent{
		AccountID:     accountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Description:   tx.Description,
		OccurredAt:    tx.CreatedAt,
	})
	return &BalanceChangeDTO{Transaction: toTransactionDTO(*tx), NewBalance: balance}, nil
}

// Reward credits the coins earned for a community action.
func (s *WalletService) Reward(ctx context.Context, accountID uuid.UUID, action string) (*BalanceChangeDTO, error) {
	ra := accountDomain.RewardAction(action)
	amount, ok := accountDomain.RewardAmount(ra)
	if !ok {
		return nil, domain.NewValidationError("invalid reward action: " + action).WithCode("INVALID_ACTION")
	}

	result, err := s.credit(ctx, accountID, amount, accountDomain.RewardDescription(ra))
	if err != nil {
		return nil, err
	}

	notifyBestEffort(ctx, s.notifier, s.logger, accountID, notificationDomain.TypeReward,
		"Coins Earned", "You earned "+amount.String()+" coins: "+accountDomain.RewardDescription(ra),
		map[string]any{"action": action, "amount": amount.String()},
	)
	return result, nil
}

// Stats returns wallet totals.
func (s *WalletService) Stats(ctx context.Context) (*WalletStatsDTO, error) {
	stats, err := s.wallet.Stats(ctx)
	if err != nil {
		return nil, err
	}
	dto := &WalletStatsDTO{
		Accounts:       stats.Accounts,
		TotalBalance:   stats.TotalBalance,
		AverageBalance: stats.AverageBalance,
		Transactions:   make(map[string]TransactionTotal, len(stats.ByType)),
	}
	for typ, tt := range stats.ByType {
		dto.Transactions[string(typ)] = TransactionTotal{Count: tt.Count, Sum: tt.Sum}
	}
	return dto, nil
}

func (s *WalletService) credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*BalanceChangeDTO, error) {
	tx, balance, err := s.wallet.Credit(ctx, accountID, amount, description)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.WalletCredited, accountID.String(), events.WalletChangedEvent{
		AccountID:     accountID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Description:   tx.Description,
		OccurredAt:    tx.CreatedAt,
	})
	return &BalanceChangeDTO{Transaction: toTransactionDTO(*tx), NewBalance: balance}, nil
}

// validateAmount accepts positive amounts with at most two decimal places,
// the precision of the wallet columns.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return domain.NewValidationError("amount must have at most 2 decimal places").WithCode("INVALID_AMOUNT")
	}
	return nil
}

func toTransactionDTO(t accountDomain.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionDTOs(txs []accountDomain.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = toTransactionDTO(t)
	}
	return dtos
}
