// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"testing"

	"github.com/nordlock/sentrygate/internal/config"
	"github.com/stretchr/testify/require"
)

func baseStartupConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestPerformStartupChecksPassesOnDefaults(t *testing.T) {
	cfg := baseStartupConfig(t)
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksFailsOnMissingDataDir(t *testing.T) {
	cfg := baseStartupConfig(t)
	cfg.DataDir = "/nonexistent/does-not-exist"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksFailsOnBadListenAddr(t *testing.T) {
	cfg := baseStartupConfig(t)
	cfg.APIListenAddr = "not-a-valid-addr"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksFailsOnBadBrokerScheme(t *testing.T) {
	cfg := baseStartupConfig(t)
	cfg.MQTT.BrokerURL = "http://broker.local:1883"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksFailsOnPartialTLSPair(t *testing.T) {
	cfg := baseStartupConfig(t)
	cfg.TLSCertFile = "/tmp/cert.pem"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecksFailsOnAuthEnabledWithoutToken(t *testing.T) {
	cfg := baseStartupConfig(t)
	cfg.Auth.Enabled = true
	cfg.Auth.Token = ""
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}
