// SPDX-License-Identifier: MIT

package reader

import "encoding/json"

// rfidCommand builds the payload for a start/stop/status/query-scan verb on
// the cmd/rfid topic.
func rfidCommand(action string) []byte {
	b, _ := json.Marshal(map[string]string{"action": action})
	return b
}

// PowerLevels is the per-antenna power setting accepted by "set power".
type PowerLevels struct {
	Ant1 int `json:"ant1"`
	Ant2 int `json:"ant2"`
	Ant3 int `json:"ant3"`
	Ant4 int `json:"ant4"`
}

func setPowerCommand(p PowerLevels) []byte {
	b, _ := json.Marshal(struct {
		Action string `json:"action"`
		PowerLevels
	}{Action: "set", PowerLevels: p})
	return b
}

func getPowerCommand() []byte {
	b, _ := json.Marshal(map[string]string{"action": "get"})
	return b
}

func pulseCommand(durationSeconds int) []byte {
	b, _ := json.Marshal(map[string]any{
		"action":   "pulse",
		"gpo3":     1,
		"duration": durationSeconds,
	})
	return b
}
