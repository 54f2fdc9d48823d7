// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Deps contains the dependencies required by the daemon Manager.
// Background components (reader gateway, janitor, event bus status
// broadcaster) are not started by the Manager itself; they are started by
// the composition root and torn down through RegisterShutdownHook so that
// server and background-task lifecycles share one shutdown sequence.
type Deps struct {
	// Logger is the structured logger for the daemon.
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the control-plane API server.
	APIHandler http.Handler

	// APIListenAddr is the address the API server listens on.
	APIListenAddr string

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled).
	MetricsHandler http.Handler

	// MetricsAddr is the address the metrics server should listen on.
	// Empty disables the metrics server.
	MetricsAddr string

	// TLSCertFile/TLSKeyFile, when both set, make the API server serve
	// HTTPS instead of plaintext. Left empty by default since the control
	// plane is expected to sit behind a reverse proxy on most deployments.
	TLSCertFile string
	TLSKeyFile  string

	// ShutdownTimeout bounds graceful shutdown of servers and hooks.
	ShutdownTimeout time.Duration

	// ReadTimeout/WriteTimeout/IdleTimeout tune the API http.Server.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Validate checks that the dependencies are usable.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	if d.ShutdownTimeout <= 0 {
		d.ShutdownTimeout = 10 * time.Second
	}
	if d.ReadTimeout <= 0 {
		d.ReadTimeout = 15 * time.Second
	}
	if d.WriteTimeout <= 0 {
		d.WriteTimeout = 15 * time.Second
	}
	if d.IdleTimeout <= 0 {
		d.IdleTimeout = 60 * time.Second
	}
	return nil
}
