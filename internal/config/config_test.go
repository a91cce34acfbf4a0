package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/entitlement-registry/internal/config"
)

func TestLoadAPIConfigDefaults(t *testing.T) {
	cfg, err := config.LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "ENTITLEMENT_EVENTS", cfg.NATS.StreamName)
	assert.Equal(t, 10, cfg.NATS.MaxReconnects)
}

func TestLoadAPIConfigFromEnv(t *testing.T) {
	t.Setenv("ENTITLEMENT_REGISTRY_DATABASE_HOST", "db.internal")
	t.Setenv("ENTITLEMENT_REGISTRY_REGISTRY_ADDRESS", "0x3ebac880caf0e76231837d19fba3b4119137aae1")

	cfg, err := config.LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "0x3ebac880caf0e76231837d19fba3b4119137aae1", cfg.Registry.Address)
}

func TestDatabaseDSN(t *testing.T) {
	db := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "registry",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=registry sslmode=disable",
		db.DSN())
}
