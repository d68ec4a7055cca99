package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// WalletTransactionModel is the GORM model for the wallet_transactions table.
type WalletTransactionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        string          `gorm:"type:varchar(10);not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Description string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time       `gorm:"not null;index"`
}

// TableName sets the table name.
func (WalletTransactionModel) TableName() string { return "wallet_transactions" }

// WalletRepositoryImpl implements account.WalletRepository using GORM.
type WalletRepositoryImpl struct {
	db *gorm.DB
}

// NewWalletRepository creates a new WalletRepositoryImpl.
func NewWalletRepository(db *gorm.DB) *WalletRepositoryImpl {
	return &WalletRepositoryImpl{db: db}
}

// Credit adds amount to the balance and records the ledger entry in one transaction.
func (r *WalletRepositoryImpl) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*accountDomain.Transaction, decimal.Decimal, error) {
	return r.apply(ctx, accountID, accountDomain.TransactionCredit, amount, description)
}

// Debit subtracts amount if the balance covers it, recording the ledger entry
// in the same transaction. The balance check is part of the UPDATE so two
// concurrent debits cannot overdraw the wallet.
func (r *WalletRepositoryImpl) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*accountDomain.Transaction, decimal.Decimal, error) {
	return r.apply(ctx, accountID, accountDomain.TransactionDebit, amount, description)
}

func (r *WalletRepositoryImpl) apply(ctx context.Context, accountID uuid.UUID, typ accountDomain.TransactionType, amount decimal.Decimal, description string) (*accountDomain.Transaction, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, domain.NewValidationError("amount must be positive")
	}

	t := accountDomain.NewTransaction(accountID, typ, amount, description)
	var balance decimal.Decimal

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&AccountModel{}).Where("id = ?", accountID)
		expr := gorm.Expr("balance + ?", amount)
		if typ == accountDomain.TransactionDebit {
			query = query.Where("balance >= ?", amount)
			expr = gorm.Expr("balance - ?", amount)
		}

		result := query.Updates(map[string]any{"balance": expr, "updated_at": t.CreatedAt})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&AccountModel{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.NewNotFoundError("Account", accountID.String())
			}
			return domain.NewInsufficientBalanceError("insufficient balance")
		}

		if err := tx.Create(toTransactionModel(t)).Error; err != nil {
			return err
		}

		var model AccountModel
		if err := tx.Select("balance").Where("id = ?", accountID).First(&model).Error; err != nil {
			return err
		}
		balance = model.Balance
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return &t, balance, nil
}

// ListTransactions returns the account's ledger newest first. An empty typ matches all.
func (r *WalletRepositoryImpl) ListTransactions(ctx context.Context, accountID uuid.UUID, typ accountDomain.TransactionType, page, limit int) ([]accountDomain.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&WalletTransactionModel{}).Where("account_id = ?", accountID)
	if typ != "" {
		query = query.Where("type = ?", string(typ))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []WalletTransactionModel
	offset := offsetFor(page, limit)
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]accountDomain.Transaction, len(models))
	for i := range models {
		txs[i] = toTransactionDomain(&models[i])
	}
	return txs, total, nil
}

// Stats returns coins in circulation and ledger totals per type.
func (r *WalletRepositoryImpl) Stats(ctx context.Context) (*accountDomain.WalletStats, error) {
	db := r.db.WithContext(ctx)

	var totals struct {
		Accounts int64
		Total    decimal.Decimal
	}
	if err := db.Model(&AccountModel{}).
		Select("COUNT(*) AS accounts, COALESCE(SUM(balance), 0) AS total").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	stats := &accountDomain.WalletStats{
		Accounts:       totals.Accounts,
		TotalBalance:   totals.Total,
		AverageBalance: decimal.Zero,
		ByType:         make(map[accountDomain.TransactionType]accountDomain.TypeTotal),
	}
	if totals.Accounts > 0 {
		stats.AverageBalance = totals.Total.Div(decimal.NewFromInt(totals.Accounts)).Round(2)
	}

	type typeTotal struct {
		Type  string
		Count int64
		Sum   decimal.Decimal
	}
	var results []typeTotal
	if err := db.Model(&WalletTransactionModel{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("type").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	for _, tt := range results {
		stats.ByType[accountDomain.TransactionType(tt.Type)] = accountDomain.TypeTotal{Count: tt.Count, Sum: tt.Sum}
	}
	return stats, nil
}

func toTransactionModel(t accountDomain.Transaction) *WalletTransactionModel {
	return &WalletTransactionModel{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionDomain(m *WalletTransactionModel) accountDomain.Transaction {
	return accountDomain.Transaction{
		ID:          m.ID,
		AccountID:   m.AccountID,
		Type:        accountDomain.TransactionType(m.Type),
		Amount:      m.Amount,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}
