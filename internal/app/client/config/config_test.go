package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set("CONFIG_DIR", dir)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.ServerAddress)
	assert.Equal(t, filepath.Join(dir, "fieldsync.db"), cfg.DataPath)
	assert.Equal(t, 5*time.Minute, cfg.SyncIntervalDuration())
	assert.Equal(t, 15*time.Second, cfg.ProbeIntervalDuration())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeoutDuration())
	assert.Equal(t, 5, cfg.MaxRetry)
	assert.Equal(t, 7, cfg.UpcomingDays)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
	assert.True(t, cfg.IsLocal())
	assert.False(t, cfg.InMemory)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	v.Set("SERVER_ADDRESS", "api.example.com")
	v.Set("ENABLE_TLS", true)
	v.Set("SYNC_INTERVAL_SECONDS", 60)
	v.Set("APP_ENV", EnvProd)
	v.Set("DATA_PATH", "/tmp/custom.db")
	v.Set("IN_MEMORY", true)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL())
	assert.Equal(t, time.Minute, cfg.SyncIntervalDuration())
	assert.Equal(t, "/tmp/custom.db", cfg.DataPath)
	assert.True(t, cfg.InMemory)
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "empty server", key: "SERVER_ADDRESS", value: ""},
		{name: "zero interval", key: "SYNC_INTERVAL_SECONDS", value: 0},
		{name: "zero probe", key: "PROBE_INTERVAL_SECONDS", value: 0},
		{name: "negative timeout", key: "REQUEST_TIMEOUT_SECONDS", value: -1},
		{name: "zero retry", key: "MAX_RETRY", value: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("CONFIG_DIR", t.TempDir())
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
