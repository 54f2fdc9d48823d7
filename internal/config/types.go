// SPDX-License-Identifier: MIT

// Package config loads, validates, and hot-reloads the edge daemon's
// configuration: TTLs, decision policy, gate topic templates, and auth.
package config

// AppConfig is the full set of recognized, hot-reloadable options plus the
// ambient settings needed to stand the daemon up.
type AppConfig struct {
	// Ambient
	APIListenAddr string `json:"api_listen_addr"`
	MetricsAddr   string `json:"metrics_addr"`
	DataDir       string `json:"data_dir"`
	DBPath        string `json:"db_path"`
	LogLevel      string `json:"log_level"`
	TLSCertFile   string `json:"tls_cert_file"`
	TLSKeyFile    string `json:"tls_key_file"`
	// TLSAutoGenerate makes the daemon mint a self-signed certificate pair
	// at TLSCertFile/TLSKeyFile on startup when they do not already exist,
	// instead of requiring an operator-provided pair.
	TLSAutoGenerate bool `json:"tls_auto_generate"`

	MQTT MQTTConfig `json:"mqtt"`
	TTL  TTLConfig  `json:"ttl"`

	Decision DecisionConfig `json:"decision"`
	Gate     GateConfig     `json:"gate"`
	Auth     AuthConfig     `json:"auth"`
	Redis    RedisConfig    `json:"redis"`
}

// RedisConfig configures the optional shared lookup cache fronting the
// tag-state store. An empty Addr disables it; the composition root falls
// back to an in-memory cache in that case.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// MQTTConfig configures the reader gateway's broker connection. Not one of
// the spec's recognized `gate.*` options, but required to reach the broker
// at all.
type MQTTConfig struct {
	BrokerURL string `json:"broker_url"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// TTLConfig holds `ttl.*`.
type TTLConfig struct {
	InCartSeconds          int `json:"in_cart_seconds"`
	PaidSeconds            int `json:"paid_seconds"`
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds"`
}

// DecisionConfig holds `decision.*`.
type DecisionConfig struct {
	PassWhenInCart  bool  `json:"pass_when_in_cart"`
	DebounceMS      int64 `json:"debounce_ms"`
	AlarmCooldownMS int64 `json:"alarm_cooldown_ms"`
}

// GateConfig holds `gate.*`, the broker topic templates and actuation
// defaults. Templates contain a single `%s` placeholder substituted with
// the configured MQTT client ID.
type GateConfig struct {
	TopicTagStream    string `json:"topic_tag_stream"`
	TopicDataResponse string `json:"topic_data_response"`
	TopicDataStatus   string `json:"topic_data_status"`
	TopicCmdRFID      string `json:"topic_cmd_rfid"`
	TopicCmdPower     string `json:"topic_cmd_power"`
	TopicCmdGPO       string `json:"topic_cmd_gpo"`
	GPOPulseSeconds   int    `json:"gpo_pulse_seconds"`
}

// AuthConfig holds `auth.*`.
type AuthConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
}

// DefaultConfig returns the recommended configuration for a single-gate edge
// deployment: a conservative debounce/cooldown pair, no shared auth token
// (must be set explicitly), and the canonical topic templates from the
// broker contract.
func DefaultConfig() AppConfig {
	return AppConfig{
		APIListenAddr: ":8080",
		MetricsAddr:   ":9090",
		DataDir:       "/var/lib/sentrygate",
		DBPath:        "/var/lib/sentrygate/gate.db",
		LogLevel:      "info",

		MQTT: MQTTConfig{
			BrokerURL: "tcp://127.0.0.1:1883",
			ClientID:  "gate-01",
		},
		TTL: TTLConfig{
			InCartSeconds:          3600,
			PaidSeconds:            300,
			CleanupIntervalSeconds: 30,
		},
		Decision: DecisionConfig{
			PassWhenInCart:  false,
			DebounceMS:      250,
			AlarmCooldownMS: 5000,
		},
		Gate: GateConfig{
			TopicTagStream:    "reader/%s/stream/tag",
			TopicDataResponse: "reader/%s/data/response",
			TopicDataStatus:   "reader/%s/data/status",
			TopicCmdRFID:      "reader/%s/cmd/rfid",
			TopicCmdPower:     "reader/%s/cmd/power",
			TopicCmdGPO:       "reader/%s/cmd/gpo",
			GPOPulseSeconds:   3,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
	}
}
