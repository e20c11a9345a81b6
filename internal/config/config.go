// Package config reads startup overrides from the environment. Settings
// the user changes at runtime live in the settings package; these values
// steer a single launch.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-driven startup options.
type Config struct {
	// LogLevel sets the zerolog level (trace, debug, info, warn, error).
	LogLevel string `env:"REFBOARD_LOG_LEVEL" envDefault:"info"`
	// SettingsPath overrides the settings file location.
	SettingsPath string `env:"REFBOARD_SETTINGS"`
	// DebugShapes paints the interactive handle zones, also reachable
	// via the -debug-shapes flag.
	DebugShapes bool `env:"REFBOARD_DEBUG_SHAPES"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
