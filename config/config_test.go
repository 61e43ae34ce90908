package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_PATH", "LOG_LEVEL", "CACHE_TTL", "ALLOWED_ORIGINS", "SWEEP_CONCURRENCY"} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	assert.Equal(t, config.Defaults(), config.FromEnv())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SWEEP_CONCURRENCY", "8")

	cfg := config.FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 8, cfg.SweepConcurrency)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("SWEEP_CONCURRENCY", "-2")

	cfg := config.FromEnv()
	assert.Equal(t, config.Defaults().CacheTTL, cfg.CacheTTL)
	assert.Equal(t, config.Defaults().SweepConcurrency, cfg.SweepConcurrency)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("LOG_LEVEL")
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("LOG_LEVEL")
	})
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_PATH=/tmp/deals.db\nLOG_LEVEL=debug\nPORT=1234\n"), 0o600))

	cfg := config.Load(path)
	assert.Equal(t, "/tmp/deals.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "7000", cfg.Port, "process environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	cfg := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Equal(t, config.Defaults().Port, cfg.Port)
}
