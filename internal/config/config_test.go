package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/pkg/database"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, database.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, devJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Equal(t, "marrakech-community-service", cfg.ConsumerGroup())
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("SERVICE_PORT", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CORS_ORIGINS", "https://marrakech.example")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUDIT_RETENTION_DAYS", "30")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"https://marrakech.example"}, cfg.CORSOrigins)
	assert.Equal(t, database.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 30, cfg.AuditRetentionDays)
}

func TestFromViper_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := FromViper(newViper())
	assert.Error(t, err)
}

func TestFromViper_RejectsBadRetention(t *testing.T) {
	t.Setenv("AUDIT_RETENTION_DAYS", "0")

	_, err := FromViper(newViper())
	assert.Error(t, err)
}
