package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Intake.DebounceWindow)
	assert.Equal(t, "Brazil", cfg.Intake.CountryQualifier)
	assert.Equal(t, "https://viacep.com.br", cfg.Postal.BaseURL)
	assert.Equal(t, "br", cfg.Geocoder.CountryCodes)
	assert.Equal(t, 10*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOLARINTAKE_SERVER_ADDR", ":9090")
	t.Setenv("SOLARINTAKE_INTAKE_DEBOUNCE_WINDOW", "250ms")
	t.Setenv("SOLARINTAKE_SERVER_ENVIRONMENT", "production")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Intake.DebounceWindow)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solarintake.yaml")
	body := []byte(`
server:
  addr: ":7070"
cache:
  backend: redis
redis:
  url: redis://localhost:6379/0
kafka:
  brokers: ["localhost:9092"]
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("redis backend requires url", func(t *testing.T) {
		t.Setenv("SOLARINTAKE_CACHE_BACKEND", "redis")
		_, err := Load(viper.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.url is required")
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		t.Setenv("SOLARINTAKE_CACHE_BACKEND", "memcached")
		_, err := Load(viper.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown cache.backend")
	})
}
