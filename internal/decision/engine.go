// SPDX-License-Identifier: MIT

// Package decision implements the gate's debounce/cooldown/state policy:
// given a raw detection it decides whether the tag may PASS or must ALARM.
package decision

import (
	"context"
	"sync"
	"time"

	"github.com/nordlock/sentrygate/internal/epc"
	"github.com/nordlock/sentrygate/internal/metrics"
	"github.com/nordlock/sentrygate/internal/store"
)

// Outcome is the result of a decide call.
type Outcome string

const (
	Pass  Outcome = "PASS"
	Alarm Outcome = "ALARM"
)

// Reason explains why an outcome was reached.
type Reason string

const (
	ReasonDebounced        Reason = "debounced"
	ReasonPaid             Reason = "paid"
	ReasonInCartAllowed    Reason = "in_cart_allowed"
	ReasonInCartNotAllowed Reason = "in_cart_not_allowed"
	ReasonAlarmCooldown    Reason = "alarm_cooldown"
	ReasonQRNotFound       Reason = "qr_not_found"
)

// Decision is the outcome of one decide call.
type Decision struct {
	Outcome Outcome
	Reason  Reason
	QRCode  string
}

// Config holds the tunables that govern debounce/cooldown/policy. It is
// read-only to the engine; the composition root swaps in a fresh Config on
// hot reload.
type Config struct {
	PassWhenInCart bool
	DebounceMS     int64
	AlarmCooldown  int64 // milliseconds
}

// Store is the subset of the tag-state store the engine depends on.
type Store interface {
	Get(ctx context.Context, qr string, now time.Time) (store.TagState, bool, error)
}

// AlarmAppender durably records an ALARM decision.
type AlarmAppender interface {
	Append(ctx context.Context, gateID, rawEPC, qr string, rssi *float64, antenna *int, now time.Time) (int64, error)
}

// Clock abstracts monotonic time for testability.
type Clock func() time.Time

// decoder is the subset of epc.CachedDecoder the engine calls on every
// detection.
type decoder interface {
	Decode(raw string) string
}

// Engine owns the debounce and cooldown tables and applies the commerce
// state policy to raw detections. It is not safe for concurrent decide
// calls: the application scheduler must serialize them.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	store   Store
	audit   AlarmAppender
	clock   Clock
	decoder decoder

	lastSeen  map[string]int64
	lastAlarm map[string]int64
}

// epcCacheSize bounds the memoized raw-EPC-to-QR-code decode cache. Sized
// for a gate with several antennas tracking a few thousand tags lingering
// in the field at once.
const epcCacheSize = 4096

// New constructs an Engine. audit may be nil only in tests that do not
// expect an ALARM to fire. Falls back to the uncached epc.Decode if the
// memoized decoder cannot be constructed, which only happens for an
// invalid cache size.
func New(cfg Config, st Store, audit AlarmAppender) *Engine {
	dec, err := epc.NewCachedDecoder(epcCacheSize)
	e := &Engine{
		cfg:       cfg,
		store:     st,
		audit:     audit,
		clock:     time.Now,
		lastSeen:  make(map[string]int64),
		lastAlarm: make(map[string]int64),
	}
	if err != nil {
		e.decoder = uncachedDecoder{}
	} else {
		e.decoder = dec
	}
	return e
}

// uncachedDecoder falls back to the plain package-level decode when a
// memoized decoder is unavailable.
type uncachedDecoder struct{}

func (uncachedDecoder) Decode(raw string) string { return epc.Decode(raw) }

// SetConfig atomically swaps the policy configuration. Safe to call
// concurrently with Decide; the debounce/cooldown tables are left intact.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Decide applies debounce, decode, lookup, classification, and alarm
// cooldown to one raw detection, in that order.
func (e *Engine) Decide(ctx context.Context, rawEPC, gateID string, rssi *float64, antenna *int) (Decision, error) {
	d, err := e.decide(ctx, rawEPC, gateID, rssi, antenna)
	if err == nil {
		metrics.RecordDecision(string(d.Outcome), string(d.Reason))
	}
	return d, err
}

func (e *Engine) decide(ctx context.Context, rawEPC, gateID string, rssi *float64, antenna *int) (Decision, error) {
	e.mu.Lock()
	nowMS := e.clock().UnixMilli()

	if last, ok := e.lastSeen[rawEPC]; ok && nowMS-last < e.cfg.DebounceMS {
		e.mu.Unlock()
		return Decision{Outcome: Pass, Reason: ReasonDebounced}, nil
	}
	e.lastSeen[rawEPC] = nowMS
	cfg := e.cfg
	e.mu.Unlock()

	qr := e.decoder.Decode(rawEPC)
	now := time.UnixMilli(nowMS)

	var candidateAlarm bool
	var reason Reason

	if qr == "" {
		candidateAlarm, reason = true, ReasonQRNotFound
	} else {
		row, found, err := e.store.Get(ctx, qr, now)
		if err != nil {
			return Decision{}, err
		}
		switch {
		case !found:
			candidateAlarm, reason = true, ReasonQRNotFound
		case row.State == store.StatePaid:
			return Decision{Outcome: Pass, Reason: ReasonPaid, QRCode: qr}, nil
		case row.State == store.StateInCart && cfg.PassWhenInCart:
			return Decision{Outcome: Pass, Reason: ReasonInCartAllowed, QRCode: qr}, nil
		case row.State == store.StateInCart:
			candidateAlarm, reason = true, ReasonInCartNotAllowed
		}
	}

	if !candidateAlarm {
		return Decision{Outcome: Pass, Reason: reason, QRCode: qr}, nil
	}

	e.mu.Lock()
	lastAlarm, hasAlarm := e.lastAlarm[rawEPC]
	if hasAlarm && nowMS-lastAlarm < cfg.AlarmCooldown {
		e.mu.Unlock()
		return Decision{Outcome: Pass, Reason: ReasonAlarmCooldown, QRCode: qr}, nil
	}
	e.lastAlarm[rawEPC] = nowMS
	e.mu.Unlock()

	if e.audit != nil {
		if _, err := e.audit.Append(ctx, gateID, rawEPC, qr, rssi, antenna, now); err != nil {
			return Decision{}, err
		}
	}

	return Decision{Outcome: Alarm, Reason: reason, QRCode: qr}, nil
}

// Evict drops debounce/cooldown entries last touched before cutoff. Called
// by the TTL janitor; best-effort and never affects decision correctness.
func (e *Engine) Evict(cutoff time.Time) (evicted int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoffMS := cutoff.UnixMilli()
	for k, v := range e.lastSeen {
		if v < cutoffMS {
			delete(e.lastSeen, k)
			evicted++
		}
	}
	for k, v := range e.lastAlarm {
		if v < cutoffMS {
			delete(e.lastAlarm, k)
			evicted++
		}
	}
	return evicted
}
