package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbsplit/config"
	"climbsplit/profile"
	"climbsplit/splitter"
	"climbsplit/timer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "climbsplit.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(body), 0o644))
	return filename
}

func validConfig() config.Config {
	return config.Config{
		Profile:            config.DefaultProfile,
		TickRate:           120,
		AttachInterval:     time.Second,
		MapRefreshInterval: time.Second,
		Timer: config.TimerConfig{
			Backend:     config.BackendLiveSplit,
			Address:     "localhost:16834",
			DialTimeout: time.Second,
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "current", cfg.Profile)
	assert.Equal(t, 120, cfg.TickRate)
	assert.Equal(t, time.Second, cfg.AttachInterval)
	assert.Equal(t, time.Second, cfg.MapRefreshInterval)
	assert.Equal(t, "", cfg.ResetPolicy)
	assert.Equal(t, config.BackendLiveSplit, cfg.Timer.Backend)
	assert.Equal(t, "localhost:16834", cfg.Timer.Address)
	assert.Equal(t, 2*time.Second, cfg.Timer.DialTimeout)
	assert.Equal(t, "", cfg.Metrics.Address)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
profile: legacy
process_name: Climbing.exe
tick_rate: 60
attach_interval: 250ms
timer:
  backend: log
metrics:
  address: 127.0.0.1:9310
`))
	require.NoError(t, err)

	assert.Equal(t, "legacy", cfg.Profile)
	assert.Equal(t, "Climbing.exe", cfg.ProcessName)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 250*time.Millisecond, cfg.AttachInterval)
	assert.Equal(t, config.BackendLog, cfg.Timer.Backend)
	assert.Equal(t, "127.0.0.1:9310", cfg.Metrics.Address)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLIMBSPLIT_TICK_RATE", "30")
	t.Setenv("CLIMBSPLIT_TIMER_ADDRESS", "10.0.0.2:16834")

	cfg, err := config.LoadConfig(writeConfig(t, "tick_rate: 60\n"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, "10.0.0.2:16834", cfg.Timer.Address)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "tick_rate: 0\n"))
	assert.ErrorIs(t, err, config.ErrInvalidTickRate)

	_, err = config.LoadConfig(writeConfig(t, "tick_rate: [1, 2\n"))
	assert.Error(t, err)

	_, err = config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := validConfig()
	require.NoError(t, valid.Validate())

	for _, tc := range []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"tick rate", func(c *config.Config) { c.TickRate = -1 }, config.ErrInvalidTickRate},
		{"attach interval", func(c *config.Config) { c.AttachInterval = 0 }, config.ErrInvalidAttachInterval},
		{"map refresh", func(c *config.Config) { c.MapRefreshInterval = 0 }, config.ErrInvalidMapRefreshInterval},
		{"reset policy", func(c *config.Config) { c.ResetPolicy = "sometimes" }, config.ErrInvalidResetPolicy},
		{"backend", func(c *config.Config) { c.Timer.Backend = "websocket" }, config.ErrInvalidTimerBackend},
		{"address", func(c *config.Config) { c.Timer.Address = "" }, config.ErrMissingTimerAddress},
		{"dial timeout", func(c *config.Config) { c.Timer.DialTimeout = 0 }, config.ErrInvalidDialTimeout},
		{"profile conflict", func(c *config.Config) { c.Profile = "legacy"; c.ProfileFile = "mine.yaml" }, config.ErrProfileConflict},
	} {
		cfg := validConfig()
		tc.mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), tc.want, tc.name)
	}

	logOnly := validConfig()
	logOnly.Timer = config.TimerConfig{Backend: config.BackendLog}
	assert.NoError(t, logOnly.Validate())

	both := validConfig()
	both.ResetPolicy = "both"
	assert.NoError(t, both.Validate())
}

func TestDefaultsMatchComponents(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, profile.DefaultName, cfg.Profile)
	assert.Equal(t, splitter.DefaultTickRate, cfg.TickRate)
	assert.Equal(t, splitter.DefaultAttachInterval, cfg.AttachInterval)
	assert.Equal(t, splitter.DefaultMapRefreshInterval, cfg.MapRefreshInterval)
	assert.Equal(t, timer.DefaultLiveSplitAddress, cfg.Timer.Address)
	assert.Equal(t, timer.DefaultDialTimeout, cfg.Timer.DialTimeout)
}
