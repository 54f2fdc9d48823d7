// SPDX-License-Identifier: MIT

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nordlock/sentrygate/internal/log"
)

// Loader reads an AppConfig from a JSON file, layers environment overrides
// on top, and validates the result. A zero-value configPath means
// environment-and-defaults-only operation (no file, no watcher).
type Loader struct {
	configPath string
}

// NewLoader creates a Loader for the given config file path.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the config file (if any), applies environment overrides, and
// returns the result. It does not validate; callers run Validate themselves
// so that Load/Validate can be sequenced independently in tests.
func (l *Loader) Load() (AppConfig, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		raw, err := os.ReadFile(l.configPath)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(raw, &cfg); jsonErr != nil {
				return AppConfig{}, fmt.Errorf("parse config file %s: %w", l.configPath, jsonErr)
			}
		case os.IsNotExist(err):
			log.WithComponent("config").Warn().
				Str("path", l.configPath).
				Msg("config file not found, using defaults plus environment")
		default:
			return AppConfig{}, fmt.Errorf("read config file %s: %w", l.configPath, err)
		}
	}

	return applyEnvOverrides(cfg), nil
}

// LoadValidated is Load followed by Validate.
func (l *Loader) LoadValidated() (AppConfig, error) {
	cfg, err := l.Load()
	if err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// WriteFile atomically rewrites the config file with cfg. The `/v1/config`
// PUT handler does not call it: a PUT is applied in memory through
// Holder.Apply and is not written back to the file.
func WriteFile(path string, cfg AppConfig) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFileAtomic(path, raw)
}
