// SPDX-License-Identifier: MIT

package config

import (
	"strings"

	"github.com/nordlock/sentrygate/internal/validate"
)

// Validate checks an AppConfig for internal consistency. It never mutates
// cfg; callers swap in the validated value only after Validate returns nil.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("APIListenAddr", cfg.APIListenAddr)
	v.Directory("DataDir", cfg.DataDir, false)
	v.NotEmpty("DBPath", cfg.DBPath)

	if cfg.MQTT.BrokerURL == "" {
		v.AddError("MQTT.BrokerURL", "value cannot be empty", cfg.MQTT.BrokerURL)
	}
	v.NotEmpty("MQTT.ClientID", cfg.MQTT.ClientID)

	v.Positive("TTL.InCartSeconds", cfg.TTL.InCartSeconds)
	v.Positive("TTL.PaidSeconds", cfg.TTL.PaidSeconds)
	v.Positive("TTL.CleanupIntervalSeconds", cfg.TTL.CleanupIntervalSeconds)

	v.NonNegative("Decision.DebounceMS", int(cfg.Decision.DebounceMS))
	v.NonNegative("Decision.AlarmCooldownMS", int(cfg.Decision.AlarmCooldownMS))

	topics := []struct {
		field string
		tmpl  string
	}{
		{"Gate.TopicTagStream", cfg.Gate.TopicTagStream},
		{"Gate.TopicDataResponse", cfg.Gate.TopicDataResponse},
		{"Gate.TopicDataStatus", cfg.Gate.TopicDataStatus},
		{"Gate.TopicCmdRFID", cfg.Gate.TopicCmdRFID},
		{"Gate.TopicCmdPower", cfg.Gate.TopicCmdPower},
		{"Gate.TopicCmdGPO", cfg.Gate.TopicCmdGPO},
	}
	for _, t := range topics {
		if strings.TrimSpace(t.tmpl) == "" {
			v.AddError(t.field, "topic template cannot be empty", t.tmpl)
			continue
		}
		if !strings.Contains(t.tmpl, "%s") {
			v.AddError(t.field, "topic template must contain a %s client-id placeholder", t.tmpl)
		}
	}
	v.Positive("Gate.GPOPulseSeconds", cfg.Gate.GPOPulseSeconds)

	if cfg.Auth.Enabled {
		v.NotEmpty("Auth.Token", cfg.Auth.Token)
	}

	if !v.IsValid() {
		return v.Err()
	}
	return nil
}
