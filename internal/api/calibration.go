// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/nordlock/sentrygate/internal/reader"
)

// Calibration/inventory commands are fire-and-forget over MQTT; the
// synchronous HTTP response only confirms the command was accepted and
// queued. The actual reader reply (power levels, status, pulse ack)
// arrives asynchronously as a CommandResponse on /ws.
func ackRequested(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (a *api) handleCalibrationStart(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Control.StartInventory(); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}

func (a *api) handleCalibrationStop(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Control.StopInventory(); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}

type testAlarmRequest struct {
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

func (a *api) handleTestAlarm(w http.ResponseWriter, r *http.Request) {
	var req testAlarmRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	if err := a.deps.Control.TriggerTestPulse(req.DurationSeconds); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}

func (a *api) handleSetPower(w http.ResponseWriter, r *http.Request) {
	var levels reader.PowerLevels
	if err := decodeJSON(w, r, &levels); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := a.deps.Control.SetPower(levels); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}

func (a *api) handleGetPower(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Control.GetPower(); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}

func (a *api) handleGetReaderStatus(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Control.GetReaderStatus(); err != nil {
		respondErr(w, r, err)
		return
	}
	ackRequested(w)
}
