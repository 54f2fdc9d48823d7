// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
)

// envString reads a string from the environment, falling back to def.
func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envInt reads an int from the environment, falling back to def on a
// missing or unparsable value.
func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envInt64 reads an int64 from the environment, falling back to def.
func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// envBool reads a bool from the environment, falling back to def.
func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// applyEnvOverrides layers SENTRYGATE_* environment variables on top of cfg.
// Only ambient and auth settings are overridable from the environment; the
// rest of the policy surface is file/API-managed so that reload and the
// `/v1/config` endpoint remain the single source of truth.
func applyEnvOverrides(cfg AppConfig) AppConfig {
	cfg.APIListenAddr = envString("SENTRYGATE_API_LISTEN_ADDR", cfg.APIListenAddr)
	cfg.MetricsAddr = envString("SENTRYGATE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.DataDir = envString("SENTRYGATE_DATA_DIR", cfg.DataDir)
	cfg.DBPath = envString("SENTRYGATE_DB_PATH", cfg.DBPath)
	cfg.LogLevel = strings.ToLower(envString("SENTRYGATE_LOG_LEVEL", cfg.LogLevel))
	cfg.TLSCertFile = envString("SENTRYGATE_TLS_CERT_FILE", cfg.TLSCertFile)
	cfg.TLSKeyFile = envString("SENTRYGATE_TLS_KEY_FILE", cfg.TLSKeyFile)
	cfg.TLSAutoGenerate = envBool("SENTRYGATE_TLS_AUTO_GENERATE", cfg.TLSAutoGenerate)

	cfg.MQTT.BrokerURL = envString("SENTRYGATE_MQTT_BROKER_URL", cfg.MQTT.BrokerURL)
	cfg.MQTT.ClientID = envString("SENTRYGATE_MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = envString("SENTRYGATE_MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = envString("SENTRYGATE_MQTT_PASSWORD", cfg.MQTT.Password)

	cfg.Auth.Enabled = envBool("SENTRYGATE_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.Token = envString("SENTRYGATE_AUTH_TOKEN", cfg.Auth.Token)

	cfg.Redis.Addr = envString("SENTRYGATE_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envString("SENTRYGATE_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("SENTRYGATE_REDIS_DB", cfg.Redis.DB)

	return cfg
}
