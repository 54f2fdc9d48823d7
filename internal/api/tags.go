// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/nordlock/sentrygate/internal/apierr"
)

const (
	inCartTTLMin = 60 * time.Second
	inCartTTLMax = 86400 * time.Second
	paidTTLMin   = 60 * time.Second
	paidTTLMax   = 604800 * time.Second
)

type registerRequest struct {
	StoreID    string   `json:"store_id"`
	POSID      string   `json:"pos_id"`
	OrderID    string   `json:"order_id"`
	TTLSeconds *int64   `json:"ttl_seconds,omitempty"`
	QRCodes    []string `json:"qr_codes"`
}

type registerResponse struct {
	Upserted    int `json:"upserted"`
	IgnoredPaid int `json:"ignored_paid,omitempty"`
}

func (a *api) handleRegisterInCart(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	ttl, err := resolveTTL(req.TTLSeconds, inCartTTLMin, inCartTTLMax)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	res, err := a.deps.Control.RegisterInCart(r.Context(), req.QRCodes, req.OrderID, req.POSID, req.StoreID, ttl)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Upserted: res.Upserted, IgnoredPaid: res.IgnoredPaid})
}

func (a *api) handleRegisterPaid(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	ttl, err := resolveTTL(req.TTLSeconds, paidTTLMin, paidTTLMax)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	upserted, err := a.deps.Control.RegisterPaid(r.Context(), req.QRCodes, req.OrderID, req.POSID, req.StoreID, ttl)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Upserted: upserted})
}

type removeRequest struct {
	OrderID string   `json:"order_id"`
	QRCodes []string `json:"qr_codes"`
}

func (a *api) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	deleted, err := a.deps.Control.Remove(r.Context(), req.QRCodes, req.OrderID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

type lookupResponse struct {
	QRCode       string `json:"qr_code"`
	EPC          string `json:"epc,omitempty"`
	Present      bool   `json:"present"`
	State        string `json:"state,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
	POSID        string `json:"pos_id,omitempty"`
	TTLRemaining *int64 `json:"ttl_remaining,omitempty"`
}

func (a *api) handleLookup(w http.ResponseWriter, r *http.Request) {
	qrCode := r.URL.Query().Get("qr_code")
	epcRaw := r.URL.Query().Get("epc")

	res, err := a.deps.Control.Lookup(r.Context(), qrCode, epcRaw)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	resp := lookupResponse{
		QRCode:  res.QRCode,
		EPC:     res.EPC,
		Present: res.Present,
		State:   res.State,
		OrderID: res.OrderID,
		POSID:   res.POSID,
	}
	if res.Present {
		resp.TTLRemaining = &res.TTLRemaining
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveTTL returns ttlSeconds as a time.Duration if set and within
// [min, max], or the zero Duration (signaling "use the config default") if
// unset. An out-of-range value is rejected rather than silently clamped.
func resolveTTL(ttlSeconds *int64, min, max time.Duration) (time.Duration, error) {
	if ttlSeconds == nil {
		return 0, nil
	}
	ttl := time.Duration(*ttlSeconds) * time.Second
	if ttl < min || ttl > max {
		return 0, apierr.Validation("ttl_seconds out of range")
	}
	return ttl, nil
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := apierr.As(err); ok {
		apierr.Respond(w, r, apiErr)
		return
	}
	apierr.Respond(w, r, apierr.Wrap(apierr.KindStorage, "internal error", err))
}
