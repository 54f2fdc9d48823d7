// SPDX-License-Identifier: MIT

package api

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListAlarmsReturnsAppendedEvents(t *testing.T) {
	deps := newTestDeps(t)
	rssi := -40.0
	antenna := 2
	_, err := deps.AlarmLog.Append(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		"gate-1", "A0B0C01234FFFFFFFFFF", "ABC1234", &rssi, &antenna, time.Now())
	require.NoError(t, err)

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/v1/alarms", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ABC1234")
}

func TestExportAlarmsStreamsCSV(t *testing.T) {
	deps := newTestDeps(t)
	_, err := deps.AlarmLog.Append(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		"gate-1", "raw-epc", "QR1", nil, nil, time.Now())
	require.NoError(t, err)

	r := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/v1/alarms/export", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	cr := csv.NewReader(w.Body)
	records, err := cr.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2) // header + one row
	require.Equal(t, "QR1", records[1][3])
}

func TestListAlarmsRejectsMalformedDate(t *testing.T) {
	deps := newTestDeps(t)
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/v1/alarms?from=not-a-date", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
