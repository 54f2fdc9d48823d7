// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and dependencies before starting the daemon.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkTargetedValidations(logger, cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

// checkTargetedValidations performs the runtime-critical validations that
// Validate does not cover because they require touching the filesystem or
// network stack (ones Validate would have to duplicate at reload time for
// no benefit).
func checkTargetedValidations(logger zerolog.Logger, cfg config.AppConfig) error {
	if cfg.APIListenAddr != "" {
		_, port, err := net.SplitHostPort(cfg.APIListenAddr)
		if err != nil {
			return fmt.Errorf("invalid API listen address %q: %w", cfg.APIListenAddr, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 0 || portNum > 65535 {
			return fmt.Errorf("invalid API listen port %q in %q", port, cfg.APIListenAddr)
		}
		logger.Info().Str("addr", cfg.APIListenAddr).Msg("API listen address is valid")
	}

	if cfg.MQTT.BrokerURL == "" {
		logger.Warn().Msg("MQTT broker URL not configured; reader gateway will not connect")
	} else {
		u, err := url.Parse(cfg.MQTT.BrokerURL)
		if err != nil {
			return fmt.Errorf("invalid MQTT broker URL: %w", err)
		}
		switch u.Scheme {
		case "tcp", "ssl", "ws", "wss", "mqtt", "mqtts":
		default:
			return fmt.Errorf("MQTT broker URL scheme must be one of tcp/ssl/ws/wss/mqtt/mqtts, got: %s", u.Scheme)
		}
		logger.Info().Str("broker", cfg.MQTT.BrokerURL).Msg("MQTT broker URL is valid")
	}

	if cfg.TLSCertFile != "" || cfg.TLSKeyFile != "" {
		if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
			return fmt.Errorf("TLS configuration requires both cert and key to be set")
		}
		if err := checkFileReadable(cfg.TLSCertFile); err != nil {
			return fmt.Errorf("TLS cert error: %w", err)
		}
		if err := checkFileReadable(cfg.TLSKeyFile); err != nil {
			return fmt.Errorf("TLS key error: %w", err)
		}
		logger.Info().Msg("TLS configuration is valid")
	}

	if cfg.Auth.Enabled && cfg.Auth.Token == "" {
		return fmt.Errorf("auth.enabled is true but auth.token is empty")
	}

	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
