package account

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Account is the aggregate root for a registered member, including its wallet balance.
type Account struct {
	id           uuid.UUID
	email        string
	username     string
	passwordHash string
	firstName    string
	lastName     string
	role         auth.Role
	isActive     bool
	balance      decimal.Decimal
	lastLoginAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time

	pending []Transaction
}

// NewAccount creates an active account with the user role and an empty wallet.
func NewAccount(email, username, passwordHash, firstName, lastName string) (*Account, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if !ValidEmail(email) {
		return nil, domain.NewValidationError("invalid email format")
	}
	if username == "" {
		return nil, domain.NewValidationError("username is required")
	}
	if firstName == "" || lastName == "" {
		return nil, domain.NewValidationError("first name and last name are required")
	}
	if passwordHash == "" {
		return nil, domain.NewValidationError("password is required")
	}

	now := time.Now().UTC()
	return &Account{
		id:           uuid.New(),
		email:        email,
		username:     username,
		passwordHash: passwordHash,
		firstName:    firstName,
		lastName:     lastName,
		role:         auth.RoleUser,
		isActive:     true,
		balance:      decimal.Zero,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds an Account from persistence.
func Reconstruct(id uuid.UUID, email, username, passwordHash, firstName, lastName string, role auth.Role, isActive bool, balance decimal.Decimal, lastLoginAt *time.Time, createdAt, updatedAt time.Time) *Account {
	return &Account{
		id: id, email: email, username: username, passwordHash: passwordHash,
		firstName: firstName, lastName: lastName, role: role, isActive: isActive,
		balance: balance, lastLoginAt: lastLoginAt, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword enforces the password policy: at least 8 characters with an
// upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return domain.NewValidationError("password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return domain.NewValidationError("password must contain uppercase, lowercase and a digit")
	}
	return nil
}

// ChangeRole assigns a new role.
func (a *Account) ChangeRole(role auth.Role) error {
	if !role.Valid() {
		return domain.NewValidationError("invalid role")
	}
	a.role = role
	a.touch()
	return nil
}

// SetActive enables or disables the account.
func (a *Account) SetActive(active bool) {
	a.isActive = active
	a.touch()
}

// UpdateProfile changes the display names. Empty values are ignored.
func (a *Account) UpdateProfile(firstName, lastName string) {
	if v := strings.TrimSpace(firstName); v != "" {
		a.firstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		a.lastName = v
	}
	a.touch()
}

// SetPasswordHash replaces the password credential.
func (a *Account) SetPasswordHash(hash string) error {
	if hash == "" {
		return domain.NewValidationError("password is required")
	}
	a.passwordHash = hash
	a.touch()
	return nil
}

// RecordLogin stamps the last login time.
func (a *Account) RecordLogin(at time.Time) {
	at = at.UTC()
	a.lastLoginAt = &at
}

// Credit adds amount to the in-memory balance and queues a ledger entry that
// the repository persists together with the account.
func (a *Account) Credit(amount decimal.Decimal, description string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, domain.NewValidationError("amount must be positive")
	}
	tx := NewTransaction(a.id, TransactionCredit, amount, description)
	a.balance = a.balance.Add(amount)
	a.pending = append(a.pending, tx)
	a.touch()
	return tx, nil
}

// PendingTransactions returns ledger entries created since load and clears them.
func (a *Account) PendingTransactions() []Transaction {
	txs := a.pending
	a.pending = nil
	return txs
}

func (a *Account) touch() { a.updatedAt = time.Now().UTC() }

// FullName joins first and last name.
func (a *Account) FullName() string { return strings.TrimSpace(a.firstName + " " + a.lastName) }

// Getters.
func (a *Account) ID() uuid.UUID            { return a.id }
func (a *Account) Email() string            { return a.email }
func (a *Account) Username() string         { return a.username }
func (a *Account) PasswordHash() string     { return a.passwordHash }
func (a *Account) FirstName() string        { return a.firstName }
func (a *Account) LastName() string         { return a.lastName }
func (a *Account) Role() auth.Role          { return a.role }
func (a *Account) IsActive() bool           { return a.isActive }
func (a *Account) Balance() decimal.Decimal { return a.balance }
func (a *Account) LastLoginAt() *time.Time  { return a.lastLoginAt }
func (a *Account) CreatedAt() time.Time     { return a.createdAt }
func (a *Account) UpdatedAt() time.Time     { return a.updatedAt }
