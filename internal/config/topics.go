// SPDX-License-Identifier: MIT

package config

import "fmt"

// TagStreamTopic returns the detection-stream subscription topic for clientID.
func (g GateConfig) TagStreamTopic(clientID string) string {
	return fmt.Sprintf(g.TopicTagStream, clientID)
}

// DataResponseTopic returns the command-response subscription topic for clientID.
func (g GateConfig) DataResponseTopic(clientID string) string {
	return fmt.Sprintf(g.TopicDataResponse, clientID)
}

// DataStatusTopic returns the reader-status subscription topic for clientID.
func (g GateConfig) DataStatusTopic(clientID string) string {
	return fmt.Sprintf(g.TopicDataStatus, clientID)
}

// CmdRFIDTopic returns the inventory start/stop command publish topic for clientID.
func (g GateConfig) CmdRFIDTopic(clientID string) string {
	return fmt.Sprintf(g.TopicCmdRFID, clientID)
}

// CmdPowerTopic returns the antenna-power command publish topic for clientID.
func (g GateConfig) CmdPowerTopic(clientID string) string {
	return fmt.Sprintf(g.TopicCmdPower, clientID)
}

// CmdGPOTopic returns the GPO/pulse command publish topic for clientID.
func (g GateConfig) CmdGPOTopic(clientID string) string {
	return fmt.Sprintf(g.TopicCmdGPO, clientID)
}
