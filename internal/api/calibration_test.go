// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/control"
	"github.com/nordlock/sentrygate/internal/reader"
)

type calibrationFakeGateway struct {
	connected bool
	calls     int
	lastPower reader.PowerLevels
}

func (g *calibrationFakeGateway) IsConnected() bool { return g.connected }
func (g *calibrationFakeGateway) StartInventory() error {
	g.calls++
	return nil
}
func (g *calibrationFakeGateway) StopInventory() error {
	g.calls++
	return nil
}
func (g *calibrationFakeGateway) QueryReaderStatus() error {
	g.calls++
	return nil
}
func (g *calibrationFakeGateway) SetPower(levels reader.PowerLevels) error {
	g.calls++
	g.lastPower = levels
	return nil
}
func (g *calibrationFakeGateway) GetPower() error {
	g.calls++
	return nil
}
func (g *calibrationFakeGateway) PulseAlarm(_ int) error {
	g.calls++
	return nil
}

func TestCalibrationStartRequestsAccepted(t *testing.T) {
	gw := &calibrationFakeGateway{connected: true}
	cfgHolder := config.NewHolder(config.DefaultConfig(), nil, "")
	deps := newTestDeps(t)
	deps.CfgHolder = cfgHolder
	deps.Control = control.New(&tagsFakeStore{}, gw, cfgHolder)

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, 1, gw.calls)
}

func TestCalibrationStartFailsFastWhenDisconnected(t *testing.T) {
	gw := &calibrationFakeGateway{connected: false}
	cfgHolder := config.NewHolder(config.DefaultConfig(), nil, "")
	deps := newTestDeps(t)
	deps.CfgHolder = cfgHolder
	deps.Control = control.New(&tagsFakeStore{}, gw, cfgHolder)

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, 0, gw.calls)
}

func TestSetPowerForwardsLevels(t *testing.T) {
	gw := &calibrationFakeGateway{connected: true}
	cfgHolder := config.NewHolder(config.DefaultConfig(), nil, "")
	deps := newTestDeps(t)
	deps.CfgHolder = cfgHolder
	deps.Control = control.New(&tagsFakeStore{}, gw, cfgHolder)

	r := NewRouter(deps)
	levels := reader.PowerLevels{Ant1: 10, Ant2: 20, Ant3: 30, Ant4: 40}
	body, _ := json.Marshal(levels)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/power", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, levels, gw.lastPower)
}

