package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_PG_HOST", "db.internal")

	raw := `
postgres:
  host: ${TEST_PG_HOST}
  user: leaderboard
  password: secret
  database: logistics

kafka:
  enabled: true

refresh:
  interval: 5m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	assert.True(t, cfg.Kafka.Enabled)

	// Untouched sections fall back to defaults
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "platform-activity", cfg.Kafka.Topic)
	assert.Equal(t, 8, cfg.Refresh.Concurrency)
	assert.Equal(t, 100, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, 10, cfg.Leaderboard.BroadcastTop)
}

func TestConnectionString(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "pw",
		Database: "logistics",
	}

	assert.Equal(t, "postgres://app:pw@localhost:5432/logistics?sslmode=disable", cfg.ConnectionString())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
