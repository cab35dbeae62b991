package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".climbsplit"
	configType      = "yaml"
	envPrefix       = "CLIMBSPLIT"
	envKeySeparator = "_"
)

// New returns a viper instance with defaults and environment binding applied. The
// CLI binds its flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	return Load(New(), configPath)
}

// Load reads the config file into v and decodes the result
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("profile", DefaultProfile)
	v.SetDefault("profile_file", "")
	v.SetDefault("process_name", "")
	v.SetDefault("tick_rate", DefaultTickRate)
	v.SetDefault("attach_interval", DefaultAttachInterval)
	v.SetDefault("map_refresh_interval", DefaultMapRefreshInterval)
	v.SetDefault("reset_policy", "")

	v.SetDefault("timer.backend", DefaultTimerBackend)
	v.SetDefault("timer.address", DefaultTimerAddress)
	v.SetDefault("timer.dial_timeout", DefaultDialTimeout)

	v.SetDefault("metrics.address", "")
}
