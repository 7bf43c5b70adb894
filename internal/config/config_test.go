package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postqueue", cfg.Redis.KeyPrefix)
	assert.Equal(t, 3, cfg.Scheduler.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.LockTTL)
	assert.Equal(t, time.Hour, cfg.Scheduler.RecordGrace)
	assert.Equal(t, 7*24*time.Hour, cfg.Scheduler.ArchiveTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Scheduler.ListWindow)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PublishTimeout)
	assert.Equal(t, "mock_", cfg.Scheduler.MockPrefix)
	assert.False(t, cfg.Scheduler.Sandbox)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_MAX_ATTEMPTS", "5")
	t.Setenv("SCHEDULER_RETRY_BASE", "30s")
	t.Setenv("SCHEDULER_SANDBOX", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Scheduler.Policy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 30*time.Second, p.Base)
	assert.True(t, cfg.Scheduler.Sandbox)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("SCHEDULER_LOCK_TTL", "five minutes")

	_, err := Load()
	assert.Error(t, err)
}
