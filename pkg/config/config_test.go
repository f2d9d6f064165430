package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoad_SinJWTSecret_Falla(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"DATABASE_URL": "postgres://x"}))
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoad_SinBaseDeDatos_Falla(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"JWT_SECRET": "s"}))
	assert.ErrorIs(t, err, ErrMissingDatabase)
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"JWT_SECRET":   "s",
		"DATABASE_URL": MemoryDatabaseURL,
		"HTTP_PORT":    "9090",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.DB.InMemory())
	assert.Equal(t, 60, cfg.JWT.Expiration)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "inventory.movements", cfg.Kafka.MovementsTopic)
	assert.Equal(t, DefaultDBMaxConns, cfg.DB.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
}

func TestLoad_PoolDeBaseDeDatos(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"JWT_SECRET":         "s",
		"DB_HOST":            "localhost",
		"DB_MAX_CONNS":       "8",
		"DB_LOCK_TIMEOUT_MS": "1500",
	}))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.DB.MaxConns)
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.LockTimeout)

	cfg, err = fromViper(newViper(map[string]any{
		"JWT_SECRET":         "s",
		"DB_HOST":            "localhost",
		"DB_MAX_CONNS":       "0",
		"DB_LOCK_TIMEOUT_MS": "-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, DefaultDBMaxConns, cfg.DB.MaxConns)
	assert.Equal(t, time.Duration(0), cfg.DB.LockTimeout)
}

func TestLoad_KafkaBrokersCSV(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"JWT_SECRET":    "s",
		"DB_HOST":       "localhost",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://postgres:@localhost:5432/inventario?sslmode=disable", cfg.DB.ConnectionString())
}
