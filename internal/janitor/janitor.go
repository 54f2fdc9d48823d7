// SPDX-License-Identifier: MIT

// Package janitor runs the background sweep that evicts expired tag-state
// rows and stale decision-engine debounce/cooldown entries.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nordlock/sentrygate/internal/log"
)

// errorCooloff is how long the janitor waits after a sweep failure before
// retrying, per the storage-error propagation policy.
const errorCooloff = 10 * time.Second

// engineEvictionWindow bounds how far back the decision engine's
// debounce/cooldown tables are trimmed on each sweep.
const engineEvictionWindow = 1 * time.Hour

// Store is the subset of the state store the janitor sweeps.
type Store interface {
	Cleanup(ctx context.Context, now time.Time) (deleted int, err error)
}

// Engine is the subset of the decision engine the janitor evicts from.
type Engine interface {
	Evict(cutoff time.Time) (evicted int)
}

// IntervalFunc returns the current sweep interval, read fresh on every
// iteration so a config hot-reload takes effect on the next tick.
type IntervalFunc func() time.Duration

// Janitor periodically sweeps Store and Engine.
type Janitor struct {
	store    Store
	engine   Engine
	interval IntervalFunc
	clock    func() time.Time
	logger   zerolog.Logger

	mu        sync.Mutex
	lastSweep time.Time
}

// New constructs a Janitor.
func New(store Store, engine Engine, interval IntervalFunc) *Janitor {
	return &Janitor{
		store:    store,
		engine:   engine,
		interval: interval,
		clock:    time.Now,
		logger:   log.WithComponent("janitor"),
	}
}

// Run sweeps on interval() until ctx is canceled. A sweep failure is
// logged and followed by errorCooloff before the next attempt, rather than
// crashing the loop.
func (j *Janitor) Run(ctx context.Context) {
	for {
		wait := j.interval()
		if wait <= 0 {
			wait = time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info().Msg("janitor stopped")
			return
		case <-timer.C:
		}

		if err := j.sweep(ctx); err != nil {
			j.logger.Error().Err(err).Msg("sweep failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorCooloff):
			}
		}
	}
}

// RunOnce triggers a single sweep immediately, outside the normal tick
// cadence. Used by the debug-cleanup control surface.
func (j *Janitor) RunOnce(ctx context.Context) error {
	return j.sweep(ctx)
}

func (j *Janitor) sweep(ctx context.Context) error {
	now := j.clock()

	deleted, err := j.store.Cleanup(ctx, now)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.logger.Info().Int("deleted", deleted).Msg("expired tag_state rows removed")
	}

	if j.engine != nil {
		evicted := j.engine.Evict(now.Add(-engineEvictionWindow))
		if evicted > 0 {
			j.logger.Debug().Int("evicted", evicted).Msg("stale decision-engine entries evicted")
		}
	}

	j.mu.Lock()
	j.lastSweep = now
	j.mu.Unlock()

	return nil
}

// LastSweep reports the timestamp of the last successful sweep, for use by
// a health checker that flags a stalled sweep loop. Returns the zero time
// before the first sweep completes.
func (j *Janitor) LastSweep() (time.Time, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSweep, nil
}
