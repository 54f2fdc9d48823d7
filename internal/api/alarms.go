// SPDX-License-Identifier: MIT

package api

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nordlock/sentrygate/internal/apierr"
)

const dateLayout = "2006-01-02"

func parseDateRange(r *http.Request) (fromTS, toTS *int64, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		t, parseErr := time.Parse(dateLayout, v)
		if parseErr != nil {
			return nil, nil, apierr.Validation("from must be YYYY-MM-DD")
		}
		ts := t.UTC().Unix()
		fromTS = &ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, parseErr := time.Parse(dateLayout, v)
		if parseErr != nil {
			return nil, nil, apierr.Validation("to must be YYYY-MM-DD")
		}
		ts := t.UTC().Add(24*time.Hour - time.Second).Unix()
		toTS = &ts
	}
	return fromTS, toTS, nil
}

type alarmEventResponse struct {
	ID        int64    `json:"id"`
	GateID    string   `json:"gate_id"`
	EPC       string   `json:"epc"`
	QRCode    string   `json:"qr_code,omitempty"`
	RSSI      *float64 `json:"rssi,omitempty"`
	Antenna   *int     `json:"antenna,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

func (a *api) handleListAlarms(w http.ResponseWriter, r *http.Request) {
	fromTS, toTS, err := parseDateRange(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, total, err := a.deps.AlarmLog.Query(r.Context(), fromTS, toTS, page, limit)
	if err != nil {
		respondErr(w, r, apierr.Storage("list alarms", err))
		return
	}

	resp := make([]alarmEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, alarmEventResponse{
			ID:        e.ID,
			GateID:    e.GateID,
			EPC:       e.EPC,
			QRCode:    e.QRCode,
			RSSI:      nullFloatPtr(e.RSSI),
			Antenna:   nullIntPtr(e.Antenna),
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": resp, "total": total})
}

func (a *api) handleExportAlarms(w http.ResponseWriter, r *http.Request) {
	fromTS, toTS, err := parseDateRange(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	rows, err := a.deps.AlarmLog.QueryAll(r.Context(), fromTS, toTS)
	if err != nil {
		respondErr(w, r, apierr.Storage("export alarms", err))
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="alarms.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "gate_id", "epc", "qr_code", "rssi", "antenna", "created_at"})

	for rows.Next() {
		var id, createdAt int64
		var gateID, epcVal string
		var qrCode sql.NullString
		var rssi sql.NullFloat64
		var antenna sql.NullInt64
		if err := rows.Scan(&id, &gateID, &epcVal, &qrCode, &rssi, &antenna, &createdAt); err != nil {
			return
		}
		_ = cw.Write([]string{
			strconv.FormatInt(id, 10),
			gateID,
			epcVal,
			qrCode.String,
			formatNullFloat(rssi),
			formatNullInt(antenna),
			strconv.FormatInt(createdAt, 10),
		})
	}
	cw.Flush()
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func formatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return fmt.Sprintf("%g", v.Float64)
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}
