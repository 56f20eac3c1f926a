package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.Session.ProfileTimeout)
	require.Equal(t, 100, cfg.Notify.Capacity)
	require.False(t, cfg.Session.WriteBack)
	require.Equal(t, "/login", cfg.Server.LoginPath)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PROFILE_FETCH_TIMEOUT", "3")
	t.Setenv("PROFILE_WRITE_BACK", "true")
	t.Setenv("NOTIFICATION_CAPACITY", "25")
	t.Setenv("SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Session.ProfileTimeout)
	require.True(t, cfg.Session.WriteBack)
	require.Equal(t, 25, cfg.Notify.Capacity)
	require.Equal(t, 90*time.Second, cfg.Session.IdleTimeout)
	require.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoadRejectsBadSweepSpec(t *testing.T) {
	t.Setenv("SESSION_SWEEP_CRON", "every now and then")

	_, err := Load()
	require.ErrorContains(t, err, "SESSION_SWEEP_CRON")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := LoadTestConfig()
	cfg.Notify.Capacity = 0
	cfg.JWT.Secret = ""

	err := cfg.Validate()
	require.ErrorContains(t, err, "NOTIFICATION_CAPACITY")
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestTestConfigIsValid(t *testing.T) {
	require.NoError(t, LoadTestConfig().Validate())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, LoadTestConfig().Save(path))
	require.FileExists(t, path)
}
