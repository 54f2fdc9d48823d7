// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nordlock/sentrygate/internal/audit"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/control"
	"github.com/nordlock/sentrygate/internal/eventbus"
	"github.com/nordlock/sentrygate/internal/reader"
	"github.com/nordlock/sentrygate/internal/store"
)

type tagsFakeStore struct {
	rows map[string]store.TagState
}

func (f *tagsFakeStore) Get(_ context.Context, qr string, now time.Time) (store.TagState, bool, error) {
	row, ok := f.rows[qr]
	if !ok || row.ExpiresAt < now.Unix() {
		return store.TagState{}, false, nil
	}
	return row, true, nil
}

func (f *tagsFakeStore) UpsertInCart(_ context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (int, int, error) {
	if f.rows == nil {
		f.rows = map[string]store.TagState{}
	}
	for _, qr := range qrs {
		f.rows[qr] = store.TagState{QRCode: qr, State: store.StateInCart, OrderID: orderID, ExpiresAt: now.Add(ttl).Unix()}
	}
	return len(qrs), 0, nil
}

func (f *tagsFakeStore) UpsertPaid(_ context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (int, error) {
	if f.rows == nil {
		f.rows = map[string]store.TagState{}
	}
	for _, qr := range qrs {
		f.rows[qr] = store.TagState{QRCode: qr, State: store.StatePaid, OrderID: orderID, ExpiresAt: now.Add(ttl).Unix()}
	}
	return len(qrs), nil
}

func (f *tagsFakeStore) Remove(_ context.Context, qrs []string, _ string) (int, error) {
	n := 0
	for _, qr := range qrs {
		if _, ok := f.rows[qr]; ok {
			delete(f.rows, qr)
			n++
		}
	}
	return n, nil
}

type tagsNoopGateway struct{}

func (tagsNoopGateway) IsConnected() bool                       { return true }
func (tagsNoopGateway) StartInventory() error                   { return nil }
func (tagsNoopGateway) StopInventory() error                    { return nil }
func (tagsNoopGateway) QueryReaderStatus() error                { return nil }
func (tagsNoopGateway) SetPower(_ reader.PowerLevels) error     { return nil }
func (tagsNoopGateway) GetPower() error                         { return nil }
func (tagsNoopGateway) PulseAlarm(_ int) error                  { return nil }

func newTagsTestRouter(t *testing.T, st *tagsFakeStore) http.Handler {
	t.Helper()
	dir := t.TempDir()
	alarmLog, err := audit.OpenAlarmLog(filepath.Join(dir, "alarms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = alarmLog.Close() })

	cfgHolder := config.NewHolder(config.DefaultConfig(), nil, "")
	ctrl := control.New(st, tagsNoopGateway{}, cfgHolder)

	return NewRouter(Deps{
		Control:   ctrl,
		CfgHolder: cfgHolder,
		Store:     &stubStore{},
		AlarmLog:  alarmLog,
		Bus:       eventbus.New(),
		Gateway:   &stubGateway{connected: true},
		Version:   "test",
		StartedAt: time.Now(),
	})
}

func TestRegisterInCartRejectsOutOfRangeTTL(t *testing.T) {
	r := newTagsTestRouter(t, &tagsFakeStore{})

	body, _ := json.Marshal(registerRequest{QRCodes: []string{"ABC1234"}, TTLSeconds: ptrInt64(30)})
	req := httptest.NewRequest(http.MethodPost, "/v1/tags/in-cart", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRegisterInCartThenLookupRoundTrips(t *testing.T) {
	st := &tagsFakeStore{}
	r := newTagsTestRouter(t, st)

	body, _ := json.Marshal(registerRequest{QRCodes: []string{"ABC1234"}, OrderID: "O1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tags/in-cart", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var regResp registerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regResp))
	require.Equal(t, 1, regResp.Upserted)

	req = httptest.NewRequest(http.MethodGet, "/v1/tags/lookup?qr_code=ABC1234", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var lookupResp lookupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lookupResp))
	require.True(t, lookupResp.Present)
	require.Equal(t, "O1", lookupResp.OrderID)
}

func TestRemoveRejectsEmptyQRCodes(t *testing.T) {
	r := newTagsTestRouter(t, &tagsFakeStore{})

	body, _ := json.Marshal(removeRequest{OrderID: "O1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tags/remove", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func ptrInt64(v int64) *int64 { return &v }
