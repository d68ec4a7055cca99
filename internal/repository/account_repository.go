package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// AccountModel is the GORM model for the accounts table.
type AccountModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email        string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string          `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string          `gorm:"type:varchar(255);not null"`
	FirstName    string          `gorm:"type:varchar(100);not null"`
	LastName     string          `gorm:"type:varchar(100);not null"`
	Role         string          `gorm:"type:varchar(20);not null;index"`
	IsActive     bool            `gorm:"not null;index"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (AccountModel) TableName() string { return "accounts" }

// AccountRepositoryImpl implements account.Repository using GORM.
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepositoryImpl.
func NewAccountRepository(db *gorm.DB) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{db: db}
}

// Save inserts a new account together with its pending wallet transactions.
func (r *AccountRepositoryImpl) Save(ctx context.Context, a *accountDomain.Account) error {
	model := toAccountModel(a)
	txs := a.PendingTransactions()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if isDuplicateKey(err) {
				return domain.NewConflictError("email or username already exists").WithCode("USER_EXISTS")
			}
			return err
		}
		for _, t := range txs {
			if err := tx.Create(toTransactionModel(t)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update writes only the column groups named by fields. The balance is owned
// by the wallet repository and is never written here.
func (r *AccountRepositoryImpl) Update(ctx context.Context, a *accountDomain.Account, fields ...accountDomain.Field) error {
	if len(fields) == 0 {
		return errors.New("account update names no fields")
	}

	values := make(map[string]any, 4)
	for _, f := range fields {
		switch f {
		case accountDomain.FieldProfile:
			values["first_name"] = a.FirstName()
			values["last_name"] = a.LastName()
		case accountDomain.FieldRole:
			values["role"] = string(a.Role())
		case accountDomain.FieldStatus:
			values["is_active"] = a.IsActive()
		case accountDomain.FieldLogin:
			values["last_login_at"] = a.LastLoginAt()
		case accountDomain.FieldPassword:
			values["password_hash"] = a.PasswordHash()
		default:
			return fmt.Errorf("unknown account field %q", f)
		}
		if f != accountDomain.FieldLogin {
			values["updated_at"] = a.UpdatedAt()
		}
	}

	result := r.db.WithContext(ctx).
		Model(&AccountModel{}).
		Where("id = ?", a.ID()).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Account", a.ID().String())
	}
	return nil
}

// Delete removes an account with its wallet ledger and notification preferences. Coupon usage history is kept.
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&WalletTransactionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&NotificationPreferenceModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&AccountModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Account", id.String())
		}
		return nil
	})
}

// FindByID retrieves an account by ID.
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("Account", id.String())
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

// FindByEmail retrieves an account by normalized email.
func (r *AccountRepositoryImpl) FindByEmail(ctx context.Context, email string) (*accountDomain.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("email = ?", accountDomain.NormalizeEmail(email)).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("Account", email)
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

// ExistsByEmailOrUsername reports whether either identifier is taken.
func (r *AccountRepositoryImpl) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AccountModel{}).
		Where("email = ? OR LOWER(username) = ?", accountDomain.NormalizeEmail(email), strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error
	return count > 0, err
}

// List returns accounts matching filter, newest first.
func (r *AccountRepositoryImpl) List(ctx context.Context, filter accountDomain.ListFilter, page, limit int) ([]*accountDomain.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&AccountModel{})
	if filter.Role != "" {
		query = query.Where("role = ?", string(filter.Role))
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []AccountModel
	offset := offsetFor(page, limit)
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]*accountDomain.Account, len(models))
	for i := range models {
		accounts[i] = toAccountDomain(&models[i])
	}
	return accounts, total, nil
}

// ListActiveIDs returns ids of active accounts, optionally restricted to one role.
func (r *AccountRepositoryImpl) ListActiveIDs(ctx context.Context, role auth.Role) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&AccountModel{}).Where("is_active = ?", true)
	if role != "" {
		query = query.Where("role = ?", string(role))
	}
	var ids []uuid.UUID
	if err := query.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Stats returns population counts.
func (r *AccountRepositoryImpl) Stats(ctx context.Context, since time.Time) (*accountDomain.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &accountDomain.Stats{ByRole: make(map[string]int64)}

	if err := db.Model(&AccountModel{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&AccountModel{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&AccountModel{}).Where("created_at >= ?", since).Count(&stats.NewSince).Error; err != nil {
		return nil, err
	}

	type roleCount struct {
		Role  string
		Count int64
	}
	var results []roleCount
	if err := db.Model(&AccountModel{}).
		Select("role, count(*) as count").
		Group("role").
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, rc := range results {
		stats.ByRole[rc.Role] = rc.Count
	}
	return stats, nil
}

func toAccountModel(a *accountDomain.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID(),
		Email:        a.Email(),
		Username:     a.Username(),
		PasswordHash: a.PasswordHash(),
		FirstName:    a.FirstName(),
		LastName:     a.LastName(),
		Role:         string(a.Role()),
		IsActive:     a.IsActive(),
		Balance:      a.Balance(),
		LastLoginAt:  a.LastLoginAt(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}

func toAccountDomain(m *AccountModel) *accountDomain.Account {
	return accountDomain.Reconstruct(
		m.ID, m.Email, m.Username, m.PasswordHash,
		m.FirstName, m.LastName, auth.Role(m.Role), m.IsActive,
		m.Balance, m.LastLoginAt, m.CreatedAt, m.UpdatedAt,
	)
}
