package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
)

func TestAuditRepository_SaveListAndCleanup(t *testing.T) {
	repo := NewAuditRepository(newTestDB(t))
	ctx := t.Context()
	admin := uuid.New()

	old := auditDomain.NewEntry(admin, "admin", "update_user_role", "user", uuid.NewString(), map[string]any{"newRole": "moderator"})
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -100)
	require.NoError(t, repo.Save(ctx, old))

	recent := auditDomain.NewEntry(admin, "admin", "create_coupon", "coupon", uuid.NewString(), nil)
	recent.IPAddress = "10.0.0.1"
	require.NoError(t, repo.Save(ctx, recent))

	entries, total, err := repo.List(ctx, auditDomain.Filter{Action: "update_user_role"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "moderator", entries[0].Details["newRole"])

	latest, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, recent.ID, latest[0].ID)
	assert.Equal(t, "10.0.0.1", latest[0].IPAddress)

	count, err := repo.CountSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
