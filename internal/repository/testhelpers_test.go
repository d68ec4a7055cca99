package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	accountDomain "github.com/marrakech-reviews/service-community/internal/domain/account"
)

// newTestDB opens a private in-memory sqlite database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedAccount stores an active account with the given starting balance.
func seedAccount(t *testing.T, db *gorm.DB, username string, balance int64) *accountDomain.Account {
	t.Helper()
	a, err := accountDomain.NewAccount(username+"@example.com", username, "hash", "Test", "User")
	require.NoError(t, err)
	if balance > 0 {
		_, err = a.Credit(decimal.NewFromInt(balance), "seed")
		require.NoError(t, err)
	}
	require.NoError(t, NewAccountRepository(db).Save(t.Context(), a))
	return a
}
