package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marrakech-reviews/service-community/pkg/auth"
)

// ListFilter narrows an admin account listing.
type ListFilter struct {
	Role   auth.Role
	Search string
}

// Stats summarizes the account population.
type Stats struct {
	Total    int64
	Active   int64
	NewSince int64
	ByRole   map[string]int64
}

// Field is a group of account columns written together. Each change writes
// only the groups it owns, so concurrent changes to other groups survive.
type Field string

const (
	FieldProfile  Field = "profile"  // first and last name
	FieldRole     Field = "role"     // admin only
	FieldStatus   Field = "status"   // admin only
	FieldLogin    Field = "login"    // last login time
	FieldPassword Field = "password" // password hash
)

// Repository persists accounts.
type Repository interface {
	// Save inserts a new account and its pending transactions atomically.
	Save(ctx context.Context, a *Account) error
	// Update writes the named column groups of a. At least one is required.
	Update(ctx context.Context, a *Account, fields ...Field) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Account, int64, error)
	ListActiveIDs(ctx context.Context, role auth.Role) ([]uuid.UUID, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// WalletStats summarizes coins in circulation.
type WalletStats struct {
	Accounts       int64
	TotalBalance   decimal.Decimal
	AverageBalance decimal.Decimal
	ByType         map[TransactionType]TypeTotal
}

// TypeTotal is the count and sum of one transaction type.
type TypeTotal struct {
	Count int64
	Sum   decimal.Decimal
}

// WalletRepository applies balance changes atomically with their ledger entry.
type WalletRepository interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*Transaction, decimal.Decimal, error)
	// Debit fails with an insufficient balance error when the balance is lower than amount.
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*Transaction, decimal.Decimal, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, typ TransactionType, page, limit int) ([]Transaction, int64, error)
	Stats(ctx context.Context) (*WalletStats, error)
}
