package application

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/pkg/domain"
	"github.com/marrakech-reviews/service-community/pkg/events"
)

func TestAccountService_UpdateRole(t *testing.T) {
	s := newStack(t)
	reg := s.register(t, "imane")
	admin := uuid.New()

	acc, err := s.accounts.UpdateRole(t.Context(), admin, reg.Account.ID, "moderator")
	require.NoError(t, err)
	assert.Equal(t, "moderator", acc.Role)
	assert.Contains(t, s.publisher.types(), events.AccountRoleChanged)

	_, err = s.accounts.UpdateRole(t.Context(), admin, reg.Account.ID, "superuser")
	requireCode(t, err, "INVALID_ROLE")

	_, err = s.accounts.UpdateRole(t.Context(), admin, uuid.New(), "user")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAccountService_ListFilters(t *testing.T) {
	s := newStack(t)
	s.register(t, "alpha")
	beta := s.register(t, "beta")
	_, err := s.accounts.UpdateRole(t.Context(), uuid.New(), beta.Account.ID, "moderator")
	require.NoError(t, err)

	all, total, err := s.accounts.List(t.Context(), "", "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	mods, total, err := s.accounts.List(t.Context(), "moderator", "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "beta", mods[0].Username)

	found, _, err := s.accounts.List(t.Context(), "", "ALP", 1, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alpha", found[0].Username)

	_, _, err = s.accounts.List(t.Context(), "owner", "", 1, 10)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAccountService_BulkDeleteRefusesAdmins(t *testing.T) {
	s := newStack(t)
	user := s.register(t, "plain")
	admin, err := s.accounts.CreateAdmin(t.Context(), "root@example.com", "root", "Secret123", "Root", "Admin")
	require.NoError(t, err)
	assert.True(t, admin.Balance.IsZero())

	_, err = s.accounts.BulkAction(t.Context(), admin.ID, BulkActionRequest{
		Action:  BulkDelete,
		UserIDs: []uuid.UUID{user.Account.ID, admin.ID},
	})
	requireCode(t, err, "CANNOT_DELETE_ADMIN")

	_, err = s.accounts.Get(t.Context(), user.Account.ID)
	require.NoError(t, err, "refused request must not delete anyone")

	res, err := s.accounts.BulkAction(t.Context(), admin.ID, BulkActionRequest{
		Action:  BulkDelete,
		UserIDs: []uuid.UUID{user.Account.ID, uuid.New()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Requested)
	assert.Equal(t, 1, res.AffectedCount)

	_, err = s.accounts.Get(t.Context(), user.Account.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAccountService_BulkStatusAndRole(t *testing.T) {
	s := newStack(t)
	a := s.register(t, "first")
	b := s.register(t, "second")
	ids := []uuid.UUID{a.Account.ID, b.Account.ID}

	res, err := s.accounts.BulkAction(t.Context(), uuid.New(), BulkActionRequest{Action: BulkDeactivate, UserIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AffectedCount)
	got, err := s.accounts.Get(t.Context(), a.Account.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	res, err = s.accounts.BulkAction(t.Context(), uuid.New(), BulkActionRequest{Action: BulkChangeRole, UserIDs: ids, NewRole: "moderator"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AffectedCount)
	got, err = s.accounts.Get(t.Context(), b.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderator", got.Role)

	_, err = s.accounts.BulkAction(t.Context(), uuid.New(), BulkActionRequest{Action: BulkChangeRole, UserIDs: ids, NewRole: "king"})
	requireCode(t, err, "INVALID_ROLE")

	_, err = s.accounts.BulkAction(t.Context(), uuid.New(), BulkActionRequest{Action: "archive", UserIDs: ids})
	requireCode(t, err, "INVALID_ACTION")
}

func TestAccountService_UpdateProfile(t *testing.T) {
	s := newStack(t)
	reg := s.register(t, "zineb")

	acc, err := s.accounts.UpdateProfile(t.Context(), reg.Account.ID, UpdateProfileRequest{FirstName: "Zineb"})
	require.NoError(t, err)
	assert.Equal(t, "Zineb", acc.FirstName)
	assert.Equal(t, "User", acc.LastName)
	assert.Equal(t, "Zineb User", acc.FullName)
}

func TestAccountService_UpdateUserWritesOnlyGivenFields(t *testing.T) {
	s := newStack(t)
	reg := s.register(t, "driss")
	admin := uuid.New()
	ctx := t.Context()

	_, err := s.accounts.UpdateUser(ctx, admin, reg.Account.ID, AdminUpdateUserRequest{})
	requireCode(t, err, "NO_UPDATE_DATA")

	_, err = s.accounts.UpdateUser(ctx, admin, reg.Account.ID, AdminUpdateUserRequest{Password: "short"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = s.accounts.UpdateRole(ctx, admin, reg.Account.ID, "moderator")
	require.NoError(t, err)

	inactive := false
	first := "Driss"
	acc, err := s.accounts.UpdateUser(ctx, admin, reg.Account.ID, AdminUpdateUserRequest{FirstName: &first, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Driss", acc.FirstName)
	assert.Equal(t, "User", acc.LastName)
	assert.False(t, acc.IsActive)

	stored, err := s.accounts.Get(ctx, reg.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderator", stored.Role)
	assert.True(t, stored.Balance.Equal(dec("100")))
	assert.Contains(t, s.publisher.types(), events.AccountStatusChanged)

	_, err = s.accounts.UpdateUser(ctx, admin, uuid.New(), AdminUpdateUserRequest{IsActive: &inactive})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAccountService_DeleteUser(t *testing.T) {
	s := newStack(t)
	reg := s.register(t, "anas")
	ctx := t.Context()

	admin, err := s.accounts.CreateAdmin(ctx, "root@example.com", "root", "Secret123", "Root", "Admin")
	require.NoError(t, err)

	requireCode(t, s.accounts.DeleteUser(ctx, admin.ID, admin.ID), "CANNOT_DELETE_ADMIN")
	require.NoError(t, s.accounts.DeleteUser(ctx, admin.ID, reg.Account.ID))

	_, err = s.accounts.Get(ctx, reg.Account.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(s.accounts.DeleteUser(ctx, admin.ID, reg.Account.ID), domain.ErrNotFound))
}
