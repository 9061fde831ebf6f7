package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7002, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/app/datalake", cfg.Datalake.Root)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8181
storage:
  backend: postgres
postgres:
  host: db.internal
  connMaxLifetime: 10m
datalake:
  root: /srv/datalake
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, Duration(10*time.Minute), cfg.Postgres.ConnMaxLifetime)
	assert.Equal(t, "/srv/datalake", cfg.Datalake.Root)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GS_STORAGE_BACKEND", "POSTGRES")
	t.Setenv("GS_POSTGRES_HOST", "pg.override")
	t.Setenv("GS_SERVER_PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "pg.override", cfg.Postgres.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("GS_STORAGE_BACKEND", "etcd")

	_, err := Load("")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "h", Port: 5432, User: "u", Password: "p",
		Database: "d", SSLMode: "disable",
	}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", cfg.DSN())
}
