// SPDX-License-Identifier: MIT

package middleware

import (
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	xglog "github.com/nordlock/sentrygate/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack applied
// to the control-plane API server.
type StackConfig struct {
	// CORS
	EnableCORS           bool
	AllowedOrigins       []string
	CORSAllowCredentials bool

	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// TrustedProxies defines which IPs are trusted to set X-Forwarded-Proto.
	TrustedProxies []*net.IPNet

	// Observability
	EnableMetrics bool
	EnableLogging bool

	// Rate limiting (mutating control-plane routes)
	EnableRateLimit bool
	RateLimitPerMin int
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. CORS (so browser-based dashboards behave)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins, cfg.CORSAllowCredentials))
	}
	// 4. Security headers
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP, cfg.TrustedProxies))
	}
	// 5. Metrics (track all requests)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 6. Logging (wraps handlers, captures full latency)
	if cfg.EnableLogging {
		r.Use(xglog.Middleware())
	}
	// 7. Rate limit (protects the reader/broker from runaway POS clients)
	if cfg.EnableRateLimit {
		perMin := cfg.RateLimitPerMin
		if perMin <= 0 {
			perMin = 120
		}
		r.Use(httprate.LimitByIP(perMin, time.Minute))
	}
}
