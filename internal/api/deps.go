// SPDX-License-Identifier: MIT

// Package api implements the HTTP control surface: tag registration,
// calibration/inventory commands, config inspection and hot reload, the
// alarm log, health/stats, and the live event-bus WebSocket feed.
package api

import (
	"context"
	"net"
	"time"

	"github.com/nordlock/sentrygate/internal/audit"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/control"
	"github.com/nordlock/sentrygate/internal/eventbus"
	"github.com/nordlock/sentrygate/internal/health"
	"github.com/nordlock/sentrygate/internal/store"
)

// Store is the subset of the tag-state store the stats/health handlers
// read from.
type Store interface {
	Counts(ctx context.Context, now time.Time) (store.Counts, error)
}

// Gateway is the subset of the reader gateway the health handler checks.
type Gateway interface {
	IsConnected() bool
}

// Janitor is the subset of the janitor the debug-cleanup handler drives.
type Janitor interface {
	RunOnce(ctx context.Context) error
}

// Deps bundles every core handle the HTTP layer calls into. It is built
// once in the composition root and never mutated.
type Deps struct {
	Control    *control.Control
	CfgHolder  *config.Holder
	Store      Store
	AlarmLog   *audit.AlarmLog
	Bus        *eventbus.Bus
	Gateway    Gateway
	Janitor    Janitor
	Audit      *audit.Logger
	Health     *health.Manager
	Version    string
	StartedAt  time.Time
	TrustedIPs []*net.IPNet
}
