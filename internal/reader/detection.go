// SPDX-License-Identifier: MIT

// Package reader implements the MQTT-based gateway to the RFID gate
// reader: subscribing to its detection stream and status topics, and
// publishing inventory/power/alarm commands back to it.
package reader

// Detection is one parsed tag sighting, independent of which wire shape it
// arrived in.
type Detection struct {
	RawEPC  string
	GateID  string
	RSSI    *float64
	Antenna *int
}
