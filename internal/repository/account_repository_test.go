package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/domain"
)

func TestAccountRepository_SaveWithWelcomeBonus(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := t.Context()

	a := seedAccount(t, db, "amina", 100)

	found, err := repo.FindByEmail(ctx, "AMINA@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID(), found.ID())
	assert.True(t, found.Balance().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, auth.RoleUser, found.Role())
	assert.True(t, found.IsActive())

	txs, total, err := NewWalletRepository(db).ListTransactions(ctx, a.ID(), "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "seed", txs[0].Description)
}

func TestAccountRepository_Duplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	seedAccount(t, db, "dup", 0)

	exists, err := repo.ExistsByEmailOrUsername(t.Context(), "other@example.com", "DUP")
	require.NoError(t, err)
	assert.True(t, exists)

	again, err := accountDomain.NewAccount("dup@example.com", "dup2", "hash", "A", "B")
	require.NoError(t, err)
	err = repo.Save(t.Context(), again)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccountRepository_UpdateDoesNotTouchBalance(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := t.Context()
	a := seedAccount(t, db, "youssef", 100)

	_, _, err := NewWalletRepository(db).Credit(ctx, a.ID(), decimal.NewFromInt(5), "helpful review")
	require.NoError(t, err)

	require.NoError(t, a.ChangeRole(auth.RoleModerator))
	a.SetActive(false)
	a.RecordLogin(time.Now())
	require.NoError(t, repo.Update(ctx, a, accountDomain.FieldRole, accountDomain.FieldStatus, accountDomain.FieldLogin))

	found, err := repo.FindByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, found.Role())
	assert.False(t, found.IsActive())
	assert.NotNil(t, found.LastLoginAt())
	assert.True(t, found.Balance().Equal(decimal.NewFromInt(105)), found.Balance().String())
}

func TestAccountRepository_UpdateWritesOnlyNamedFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := t.Context()
	a := seedAccount(t, db, "hamza", 0)

	stale, err := repo.FindByID(ctx, a.ID())
	require.NoError(t, err)

	require.NoError(t, a.ChangeRole(auth.RoleModerator))
	a.SetActive(false)
	require.NoError(t, repo.Update(ctx, a, accountDomain.FieldRole, accountDomain.FieldStatus))

	stale.RecordLogin(time.Now())
	stale.UpdateProfile("Hamza", "Alaoui")
	require.NoError(t, repo.Update(ctx, stale, accountDomain.FieldLogin, accountDomain.FieldProfile))

	found, err := repo.FindByID(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleModerator, found.Role())
	assert.False(t, found.IsActive())
	assert.NotNil(t, found.LastLoginAt())
	assert.Equal(t, "Alaoui", found.LastName())

	assert.Error(t, repo.Update(ctx, a))
	assert.Error(t, repo.Update(ctx, a, accountDomain.Field("balance")))
	ghost, err := accountDomain.NewAccount("ghost@example.com", "ghost", "hash", "G", "H")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, ghost, accountDomain.FieldLogin), domain.ErrNotFound)
}

func TestAccountRepository_ListAndStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := t.Context()

	seedAccount(t, db, "karim", 0)
	seedAccount(t, db, "salma", 0)
	mod := seedAccount(t, db, "moderator", 0)
	require.NoError(t, mod.ChangeRole(auth.RoleModerator))
	require.NoError(t, repo.Update(ctx, mod, accountDomain.FieldRole))

	list, total, err := repo.List(ctx, accountDomain.ListFilter{Search: "SAL"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "salma", list[0].Username())

	_, total, err = repo.List(ctx, accountDomain.ListFilter{Role: auth.RoleModerator}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	ids, err := repo.ListActiveIDs(ctx, auth.RoleUser)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	stats, err := repo.Stats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 3, stats.NewSince)
	assert.EqualValues(t, 2, stats.ByRole["user"])
}

func TestAccountRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := t.Context()
	a := seedAccount(t, db, "gone", 100)

	require.NoError(t, repo.Delete(ctx, a.ID()))
	_, err := repo.FindByID(ctx, a.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), domain.ErrNotFound)
}
