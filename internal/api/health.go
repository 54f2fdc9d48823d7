// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/nordlock/sentrygate/internal/apierr"
	"github.com/nordlock/sentrygate/internal/eventbus"
	"github.com/nordlock/sentrygate/internal/log"
)

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	ReaderConnected bool   `json:"reader_connected"`
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := a.deps.Gateway != nil && a.deps.Gateway.IsConnected()
	status := "ok"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          status,
		Version:         a.deps.Version,
		UptimeSeconds:   int64(time.Since(a.deps.StartedAt).Seconds()),
		ReaderConnected: connected,
	})
}

type statsResponse struct {
	InCart          int  `json:"in_cart"`
	Paid            int  `json:"paid"`
	AlarmsLastHour  int  `json:"alarms_last_hour"`
	ReaderConnected bool `json:"reader_connected"`
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.deps.Store.Counts(r.Context(), time.Now())
	if err != nil {
		respondErr(w, r, apierr.Storage("stats: counts", err))
		return
	}

	var alarmsLastHour int
	if a.deps.AlarmLog != nil {
		n, err := a.deps.AlarmLog.CountLast(r.Context(), time.Hour, time.Now())
		if err != nil {
			respondErr(w, r, apierr.Storage("stats: alarm count", err))
			return
		}
		alarmsLastHour = n
	}

	writeJSON(w, http.StatusOK, statsResponse{
		InCart:          counts.InCart,
		Paid:            counts.Paid,
		AlarmsLastHour:  alarmsLastHour,
		ReaderConnected: a.deps.Gateway != nil && a.deps.Gateway.IsConnected(),
	})
}

func (a *api) handleWS(w http.ResponseWriter, r *http.Request) {
	eventbus.ServeWS(a.deps.Bus, w, r)
}

func (a *api) handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": log.GetRecentLogs()})
}

type cleanupResponse struct {
	Status string `json:"status"`
}

func (a *api) handleDebugCleanup(w http.ResponseWriter, r *http.Request) {
	if a.deps.Janitor == nil {
		respondErr(w, r, apierr.New(apierr.KindStorage, "janitor not configured"))
		return
	}
	if err := a.deps.Janitor.RunOnce(r.Context()); err != nil {
		respondErr(w, r, apierr.Storage("debug cleanup", err))
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Status: "swept"})
}
