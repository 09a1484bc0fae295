package config

import (
	"fmt"
	"strings"

	"github.com/timeseer-ai/kukur-go/pkg/errkind"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

var validAuthModes = map[string]bool{
	"basic": true, "no-auth": true,
}

// ConfigValidator accumulates every problem found in a Config rather than
// failing on the first one, so an operator fixing a config file sees every
// mistake in one pass instead of one per run.
type ConfigValidator struct {
	errors []string
}

func (v *ConfigValidator) addError(operation, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", operation, message))
}

// ValidateConfig checks the ambient flight/data_dir/logging/metrics keys. Source
// registry consistency is internal/registry.New's job: it already returns
// errkind.InvalidSource for a bad adapter type or missing required key, so
// duplicating that check here would just be two places that can disagree.
func ValidateConfig(cfg *Config) error {
	v := &ConfigValidator{}
	v.validateFlight(cfg)
	v.validateDataDir(cfg)
	v.validateLogging(cfg)
	v.validateMetrics(cfg)

	if len(v.errors) == 0 {
		return nil
	}
	return errkind.InvalidConfigurationError(component, "validate", strings.Join(v.errors, "; "))
}

func (v *ConfigValidator) validateFlight(cfg *Config) {
	if cfg.Flight.Host == "" {
		v.addError("flight.host", "must not be empty")
	}
	if cfg.Flight.Port <= 0 || cfg.Flight.Port > 65535 {
		v.addError("flight.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Flight.Port))
	}
	if !validAuthModes[cfg.Flight.Authentication] {
		v.addError("flight.authentication", fmt.Sprintf("must be one of basic, no-auth, got %q", cfg.Flight.Authentication))
	}
}

func (v *ConfigValidator) validateDataDir(cfg *Config) {
	if cfg.DataDir == "" {
		v.addError("data_dir", "must not be empty")
	}
}

func (v *ConfigValidator) validateLogging(cfg *Config) {
	if !validLogLevels[cfg.Logging.Level] {
		v.addError("logging.level", fmt.Sprintf("must be one of debug, info, warn, error, got %q", cfg.Logging.Level))
	}
	if !validLogFormats[cfg.Logging.Format] {
		v.addError("logging.format", fmt.Sprintf("must be one of json, text, got %q", cfg.Logging.Format))
	}
}

func (v *ConfigValidator) validateMetrics(cfg *Config) {
	if !cfg.Metrics.Enabled {
		return
	}
	if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
		v.addError("metrics.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Metrics.Port))
	}
	if cfg.Metrics.Port == cfg.Flight.Port {
		v.addError("metrics.port", "must differ from flight.port")
	}
}
