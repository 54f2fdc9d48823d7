// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nordlock/sentrygate/internal/cache"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/decision"
	"github.com/nordlock/sentrygate/internal/eventbus"
	"github.com/nordlock/sentrygate/internal/health"
	"github.com/nordlock/sentrygate/internal/janitor"
	gatelog "github.com/nordlock/sentrygate/internal/log"
	"github.com/nordlock/sentrygate/internal/reader"
	"github.com/nordlock/sentrygate/internal/store"
)

// janitorStallThreshold flags the sweep loop as degraded once this long has
// passed without a successful sweep, several cleanup intervals past the
// shortest sane ttl.cleanup_interval_seconds.
const janitorStallThreshold = 5 * time.Minute

// buildHealthManager wires the store, the broker connection, and the
// janitor sweep loop into one readiness/health surface for /healthz and
// /readyz. Readiness is strict: only readiness-scoped checkers gate it, so
// a merely-degraded (non-gating) signal like a stalled janitor does not
// pull the pod out of a Kubernetes service.
func buildHealthManager(version string, st countsReader, gw *reader.Gateway, jan *janitor.Janitor) *health.Manager {
	mgr := health.NewManager(version)
	mgr.SetReadyStrict(true)

	mgr.RegisterChecker(health.NewStoreChecker(func(ctx context.Context) error {
		_, err := st.Counts(ctx, time.Now())
		return err
	}))
	mgr.RegisterChecker(health.NewMQTTChecker(gw.IsConnected))
	mgr.RegisterChecker(health.NewJanitorChecker(jan.LastSweep, janitorStallThreshold))

	return mgr
}

// lookupCacheCleanupInterval bounds how often the in-memory cache fallback
// sweeps expired entries when no Redis backend is configured.
const lookupCacheCleanupInterval = 30 * time.Second

// lookupCache builds the tag-state lookup cache fronting the store. A
// configured Redis address shares the cache across every gate instance
// pointed at the same store; otherwise an in-memory cache still coalesces
// repeat lookups within one instance. A Redis connection failure falls
// back to in-memory rather than failing startup, since the cache is a
// performance optimization, not a correctness dependency.
func lookupCache(cfg config.AppConfig, logger zerolog.Logger) cache.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryCache(lookupCacheCleanupInterval)
	}

	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, gatelog.WithComponent("cache"))
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis lookup cache unavailable, falling back to in-memory")
		return cache.NewMemoryCache(lookupCacheCleanupInterval)
	}
	return c
}

// countsReader is the subset of the store the status broadcaster reads
// point-in-time counts from; satisfied by both *store.Store and
// *store.CachedStore.
type countsReader interface {
	Counts(ctx context.Context, now time.Time) (store.Counts, error)
}

// pulseTrigger fires the gate's alarm pulse. Satisfied by *reader.Gateway
// in production; a thin seam so the wiring-level test can stub it.
type pulseTrigger interface {
	PulseAlarm(durationSeconds int) error
}

// detectionHandler decides one raw detection and fans the outcome out: on
// ALARM it fires the gate's pulse for gate.gpo_pulse_seconds, then
// broadcasts TAG_DETECTED and ALARM_TRIGGERED onto the event bus, in that
// order, per the audit-append happens-before pulse-publish happens-before
// bus-broadcast ordering (the audit append itself already happened inside
// engine.Decide). Decisions reasoned "debounced" or "alarm_cooldown" are not
// broadcast at all.
func detectionHandler(ctx context.Context, engine *decision.Engine, bus *eventbus.Bus, pulse pulseTrigger, cfgHolder *config.Holder) reader.DetectionHandler {
	logger := gatelog.WithComponent("wiring")

	return func(_ context.Context, d reader.Detection) {
		dec, err := engine.Decide(ctx, d.RawEPC, d.GateID, d.RSSI, d.Antenna)
		if err != nil {
			logger.Error().Err(err).Str("epc", d.RawEPC).Msg("decision failed")
			return
		}

		if dec.Reason == decision.ReasonDebounced || dec.Reason == decision.ReasonAlarmCooldown {
			return
		}

		if dec.Outcome == decision.Alarm {
			if err := pulse.PulseAlarm(cfgHolder.Get().Gate.GPOPulseSeconds); err != nil {
				logger.Warn().Err(err).Str("epc", d.RawEPC).Str("qr", dec.QRCode).Msg("failed to trigger alarm pulse")
			}
		}

		now := time.Now()
		bus.Broadcast(eventbus.TagDetected{
			Type:      eventbus.TypeTagDetected,
			TagID:     dec.QRCode,
			RSSI:      d.RSSI,
			Antenna:   d.Antenna,
			Decision:  string(dec.Outcome),
			Timestamp: now,
		})

		if dec.Outcome == decision.Alarm {
			bus.Broadcast(eventbus.AlarmTriggered{
				Type:      eventbus.TypeAlarmTriggered,
				TagID:     dec.QRCode,
				GateID:    d.GateID,
				RSSI:      d.RSSI,
				Timestamp: now,
			})
		}
	}
}

// statusHandler mirrors a raw reader `data/status` MQTT payload onto bus
// subscribers. The reader firmware's status schema is not part of the
// broker command contract this core owns, so the payload is decoded into a
// generic map and passed through field-by-field rather than with a typed
// struct.
func statusHandler(bus *eventbus.Bus) reader.StatusHandler {
	logger := gatelog.WithComponent("wiring")

	return func(payload []byte) {
		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			logger.Warn().Err(err).Msg("dropping malformed status payload")
			return
		}

		status := eventbus.ReaderStatus{
			Type:      eventbus.TypeReaderStatus,
			Status:    stringField(raw, "status"),
			Memory:    raw["memory"],
			Antennas:  raw["antennas"],
			Network:   raw["network"],
			System:    raw["system"],
			Timestamp: time.Now(),
		}
		if uptime, ok := raw["uptime"].(float64); ok {
			u := int64(uptime)
			status.Uptime = &u
		}
		bus.Broadcast(status)
	}
}

// responseHandler mirrors a raw reader `data/response` MQTT payload (the
// reply to an inventory/power/GPO command) onto bus subscribers.
func responseHandler(bus *eventbus.Bus) reader.ResponseHandler {
	logger := gatelog.WithComponent("wiring")

	return func(payload []byte) {
		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			logger.Warn().Err(err).Msg("dropping malformed command-response payload")
			return
		}

		bus.Broadcast(eventbus.CommandResponse{
			Type:      eventbus.TypeCommandResponse,
			Command:   stringField(raw, "command"),
			Action:    stringField(raw, "action"),
			Status:    stringField(raw, "status"),
			Message:   stringField(raw, "message"),
			Data:      raw["data"],
			Timestamp: time.Now(),
		})
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// watchConfigReloads keeps the decision engine's policy config in sync with
// every hot reload or `/v1/config` PUT, without the engine depending on the
// Holder directly.
func watchConfigReloads(ctx context.Context, cfgHolder *config.Holder, engine *decision.Engine) {
	ch := make(chan config.AppConfig, 1)
	cfgHolder.RegisterListener(ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-ch:
				engine.SetConfig(decisionConfig(cfg))
			}
		}
	}()
}

// janitorInterval reads the sweep interval fresh from the holder on every
// tick so a `ttl.cleanup_interval_seconds` hot reload takes effect without
// restarting the janitor loop.
func janitorInterval(cfgHolder *config.Holder) janitor.IntervalFunc {
	return func() time.Duration {
		seconds := cfgHolder.Get().TTL.CleanupIntervalSeconds
		if seconds <= 0 {
			seconds = 30
		}
		return time.Duration(seconds) * time.Second
	}
}

// statusProvider reports the point-in-time values the STATUS_UPDATE
// broadcast carries.
func statusProvider(gw *reader.Gateway, st countsReader) eventbus.StatusProvider {
	logger := gatelog.WithComponent("wiring")

	return func() (bool, int, int) {
		counts, err := st.Counts(context.Background(), time.Now())
		if err != nil {
			logger.Warn().Err(err).Msg("status broadcaster: failed to read store counts")
			return gw.IsConnected(), 0, 0
		}
		return gw.IsConnected(), counts.InCart, counts.Paid
	}
}
