// Package config loads the splitter settings from defaults, an optional YAML file
// and CLIMBSPLIT_ environment variables.
package config

import (
	"errors"
	"time"

	"climbsplit/profile"
	"climbsplit/splitter"
	"climbsplit/timer"
)

const (
	BackendLiveSplit = "livesplit"
	BackendLog       = "log"
)

// Config is the top-level configuration. Field tags use mapstructure for viper
// unmarshalling.
type Config struct {
	Profile            string        `mapstructure:"profile"`
	ProfileFile        string        `mapstructure:"profile_file"`
	ProcessName        string        `mapstructure:"process_name"`
	TickRate           int           `mapstructure:"tick_rate"`
	AttachInterval     time.Duration `mapstructure:"attach_interval"`
	MapRefreshInterval time.Duration `mapstructure:"map_refresh_interval"`
	ResetPolicy        string        `mapstructure:"reset_policy"`
	Timer              TimerConfig   `mapstructure:"timer"`
	Metrics            MetricsConfig `mapstructure:"metrics"`
}

// TimerConfig selects and addresses the run timer
type TimerConfig struct {
	Backend     string        `mapstructure:"backend"`
	Address     string        `mapstructure:"address"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// MetricsConfig enables the prometheus endpoint when Address is set
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// Defaults are owned by the packages that use them
const (
	DefaultProfile            = profile.DefaultName
	DefaultTickRate           = splitter.DefaultTickRate
	DefaultAttachInterval     = splitter.DefaultAttachInterval
	DefaultMapRefreshInterval = splitter.DefaultMapRefreshInterval
	DefaultTimerBackend       = BackendLiveSplit
	DefaultTimerAddress       = timer.DefaultLiveSplitAddress
	DefaultDialTimeout        = timer.DefaultDialTimeout
)

var (
	ErrInvalidTickRate           = errors.New("tick_rate must be positive")
	ErrInvalidAttachInterval     = errors.New("attach_interval must be positive")
	ErrInvalidMapRefreshInterval = errors.New("map_refresh_interval must be positive")
	ErrInvalidResetPolicy        = errors.New("reset_policy must be one of position, input, both")
	ErrInvalidTimerBackend       = errors.New("timer.backend must be livesplit or log")
	ErrMissingTimerAddress       = errors.New("timer.address is required for the livesplit backend")
	ErrInvalidDialTimeout        = errors.New("timer.dial_timeout must be positive")
	ErrProfileConflict           = errors.New("profile_file and a non-default profile are mutually exclusive")
)

// Validate checks value ranges. An empty config is not valid; start from defaults.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		return ErrInvalidTickRate
	}
	if c.AttachInterval <= 0 {
		return ErrInvalidAttachInterval
	}
	if c.MapRefreshInterval <= 0 {
		return ErrInvalidMapRefreshInterval
	}
	switch c.ResetPolicy {
	case "", "position", "input", "both":
	default:
		return ErrInvalidResetPolicy
	}
	if c.ProfileFile != "" && c.Profile != "" && c.Profile != DefaultProfile {
		return ErrProfileConflict
	}
	return c.Timer.validate()
}

func (t TimerConfig) validate() error {
	switch t.Backend {
	case BackendLiveSplit:
		if t.Address == "" {
			return ErrMissingTimerAddress
		}
		if t.DialTimeout <= 0 {
			return ErrInvalidDialTimeout
		}
	case BackendLog:
	default:
		return ErrInvalidTimerBackend
	}
	return nil
}
