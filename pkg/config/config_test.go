package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, LockDriverLocal, cfg.Scheduler.LockDriver)
	assert.Equal(t, 1, cfg.Scheduler.MinProctors)
	assert.Equal(t, 8*time.Hour, cfg.Scheduler.DayStart)
	assert.Equal(t, 18*time.Hour, cfg.Scheduler.DayEnd)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.SlotDuration)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.RunTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("SCHEDULER_MIN_PROCTORS", "2")
	t.Setenv("SCHEDULER_DAY_START", "07:30")
	t.Setenv("SCHEDULER_LOCK_TTL", "bogus")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 2, cfg.Scheduler.MinProctors)
	assert.Equal(t, 7*time.Hour+30*time.Minute, cfg.Scheduler.DayStart)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.LockTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("18:00")
	require.NoError(t, err)
	assert.Equal(t, 18*time.Hour, d)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
