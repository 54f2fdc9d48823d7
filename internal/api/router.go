// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/nordlock/sentrygate/internal/api/middleware"
)

// mutatingRateLimitPerMin bounds POST/PUT traffic from a single POS client
// so a runaway integration cannot starve the reader gateway's own MQTT
// publish rate limit.
const mutatingRateLimitPerMin = 240

type api struct {
	deps Deps
}

// NewRouter builds the chi router exposing the full control-plane surface
// described by the external-interfaces table: tag registration,
// calibration/inventory, config, alarms, health/stats/debug, and /ws.
func NewRouter(deps Deps) http.Handler {
	a := &api{deps: deps}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		TrustedProxies:        deps.TrustedIPs,
		EnableMetrics:         true,
		EnableLogging:         true,
	})

	r.Get("/health", a.handleHealth)
	r.Get("/v1/stats", a.handleStats)
	r.Get("/ws", a.handleWS)

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.ServeHealth)
		r.Get("/readyz", deps.Health.ServeReady)
	}

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)

		r.Get("/v1/tags/lookup", a.handleLookup)
		r.Get("/v1/calibration/power", a.handleGetPower)
		r.Get("/v1/calibration/status", a.handleGetReaderStatus)
		r.Get("/v1/config", a.handleGetConfig)
		r.Get("/v1/alarms", a.handleListAlarms)
		r.Get("/v1/alarms/export", a.handleExportAlarms)
		r.Get("/v1/debug/logs", a.handleDebugLogs)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(mutatingRateLimitPerMin, time.Minute))

			r.Post("/v1/tags/in-cart", a.handleRegisterInCart)
			r.Post("/v1/tags/paid", a.handleRegisterPaid)
			r.Post("/v1/tags/remove", a.handleRemove)
			r.Post("/v1/calibration/start", a.handleCalibrationStart)
			r.Post("/v1/calibration/stop", a.handleCalibrationStop)
			r.Post("/v1/calibration/test-alarm", a.handleTestAlarm)
			r.Post("/v1/calibration/power", a.handleSetPower)
			r.Put("/v1/config", a.handlePutConfig)
			r.Post("/v1/config/reload", a.handleConfigReload)
			r.Post("/v1/debug/cleanup", a.handleDebugCleanup)
		})
	})

	return r
}
