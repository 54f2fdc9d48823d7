// SPDX-License-Identifier: MIT

// Package control implements the command surface the HTTP API exposes to
// collaborators: register-in-cart, register-paid, remove, lookup, and the
// calibration/inventory commands that require a live reader connection.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nordlock/sentrygate/internal/apierr"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/epc"
	"github.com/nordlock/sentrygate/internal/log"
	"github.com/nordlock/sentrygate/internal/reader"
	"github.com/nordlock/sentrygate/internal/resilience"
	"github.com/nordlock/sentrygate/internal/store"
)

// breakerThreshold/minAttempts/window/resetTimeout tune how quickly a run
// of reader-gateway publish failures degrades calls to TransportUnavailable,
// and how long the plane waits before letting a probe request through again.
const (
	breakerThreshold    = 3
	breakerMinAttempts  = 3
	breakerWindow       = 30 * time.Second
	breakerResetTimeout = 5 * time.Second
)

// Store is the subset of the tag-state store the control plane forwards to.
type Store interface {
	Get(ctx context.Context, qr string, now time.Time) (store.TagState, bool, error)
	UpsertInCart(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (upserted, ignoredPaid int, err error)
	UpsertPaid(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (upserted int, err error)
	Remove(ctx context.Context, qrs []string, orderID string) (deleted int, err error)
}

// Gateway is the subset of the reader gateway the control plane drives.
// Every method here requires an established broker connection.
type Gateway interface {
	IsConnected() bool
	StartInventory() error
	StopInventory() error
	QueryReaderStatus() error
	SetPower(levels reader.PowerLevels) error
	GetPower() error
	PulseAlarm(durationSeconds int) error
}

// RegisterResult reports the outcome of an in-cart registration.
type RegisterResult struct {
	Upserted    int
	IgnoredPaid int
}

// LookupResult answers a by-QR-code or by-EPC lookup.
type LookupResult struct {
	QRCode       string
	EPC          string
	Present      bool
	State        string
	OrderID      string
	POSID        string
	TTLRemaining int64
}

// Control is the composition root's single handle for every command the
// HTTP API forwards into the core.
type Control struct {
	store     Store
	gateway   Gateway
	cfgHolder *config.Holder
	breaker   *resilience.CircuitBreaker
	logger    zerolog.Logger
}

// New constructs a Control plane over store and gateway, consulting
// cfgHolder for TTL and pulse-width defaults on every call so a hot reload
// takes effect immediately.
func New(st Store, gw Gateway, cfgHolder *config.Holder) *Control {
	return &Control{
		store:     st,
		gateway:   gw,
		cfgHolder: cfgHolder,
		breaker:   resilience.NewCircuitBreaker("reader_gateway", breakerThreshold, breakerMinAttempts, breakerWindow, breakerResetTimeout),
		logger:    log.WithComponent("control"),
	}
}

// RegisterInCart forwards to the store's conditional IN_CART upsert. A ttl
// of zero is replaced with the current ttl.in_cart_seconds default.
func (c *Control) RegisterInCart(ctx context.Context, qrCodes []string, orderID, posID, storeID string, ttl time.Duration) (RegisterResult, error) {
	if len(qrCodes) == 0 {
		return RegisterResult{}, apierr.Validation("qr_codes must not be empty")
	}
	if ttl <= 0 {
		ttl = time.Duration(c.cfgHolder.Get().TTL.InCartSeconds) * time.Second
	}

	upserted, ignored, err := c.store.UpsertInCart(ctx, qrCodes, orderID, posID, storeID, ttl, time.Now())
	if err != nil {
		return RegisterResult{}, apierr.Storage("register in-cart", err)
	}
	return RegisterResult{Upserted: upserted, IgnoredPaid: ignored}, nil
}

// RegisterPaid forwards to the store's unconditional PAID upsert. A ttl of
// zero is replaced with the current ttl.paid_seconds default.
func (c *Control) RegisterPaid(ctx context.Context, qrCodes []string, orderID, posID, storeID string, ttl time.Duration) (int, error) {
	if len(qrCodes) == 0 {
		return 0, apierr.Validation("qr_codes must not be empty")
	}
	if ttl <= 0 {
		ttl = time.Duration(c.cfgHolder.Get().TTL.PaidSeconds) * time.Second
	}

	upserted, err := c.store.UpsertPaid(ctx, qrCodes, orderID, posID, storeID, ttl, time.Now())
	if err != nil {
		return 0, apierr.Storage("register paid", err)
	}
	return upserted, nil
}

// Remove deletes the named rows, optionally scoped to orderID.
func (c *Control) Remove(ctx context.Context, qrCodes []string, orderID string) (int, error) {
	if len(qrCodes) == 0 {
		return 0, apierr.Validation("qr_codes must not be empty")
	}

	deleted, err := c.store.Remove(ctx, qrCodes, orderID)
	if err != nil {
		return 0, apierr.Storage("remove tag state", err)
	}
	return deleted, nil
}

// Lookup resolves a caller-supplied qr_code or epc to the current store
// row. Exactly one of qrCode or rawEPC must be non-empty.
func (c *Control) Lookup(ctx context.Context, qrCode, rawEPC string) (LookupResult, error) {
	if (qrCode == "") == (rawEPC == "") {
		return LookupResult{}, apierr.Validation("exactly one of qr_code or epc must be supplied")
	}

	qr := qrCode
	var epcOut string
	if rawEPC != "" {
		epcOut = rawEPC
		qr = epc.Decode(rawEPC)
	}

	now := time.Now()
	row, found, err := c.store.Get(ctx, qr, now)
	if err != nil {
		return LookupResult{}, apierr.Storage("lookup tag state", err)
	}

	result := LookupResult{QRCode: qr, EPC: epcOut, Present: found}
	if found {
		result.State = string(row.State)
		result.OrderID = row.OrderID
		result.POSID = row.POSID
		result.TTLRemaining = row.ExpiresAt - now.Unix()
	}
	return result, nil
}

// TriggerTestPulse fires the alarm pulse for durationSeconds, or the
// configured gate.gpo_pulse_seconds default when durationSeconds <= 0.
func (c *Control) TriggerTestPulse(durationSeconds int) error {
	if durationSeconds <= 0 {
		durationSeconds = c.cfgHolder.Get().Gate.GPOPulseSeconds
	}
	return c.guarded("trigger_test_pulse", func() error { return c.gateway.PulseAlarm(durationSeconds) })
}

// SetPower sets the per-antenna power levels.
func (c *Control) SetPower(levels reader.PowerLevels) error {
	return c.guarded("set_power", func() error { return c.gateway.SetPower(levels) })
}

// GetPower requests the reader report its current antenna power levels.
// The response itself arrives asynchronously on the data/response topic.
func (c *Control) GetPower() error {
	return c.guarded("get_power", c.gateway.GetPower)
}

// GetReaderStatus requests a reader status report.
func (c *Control) GetReaderStatus() error {
	return c.guarded("get_reader_status", c.gateway.QueryReaderStatus)
}

// StartInventory starts the reader's RFID scan.
func (c *Control) StartInventory() error {
	return c.guarded("start_inventory", c.gateway.StartInventory)
}

// StopInventory stops the reader's RFID scan.
func (c *Control) StopInventory() error {
	return c.guarded("stop_inventory", c.gateway.StopInventory)
}

// guarded rejects op with TransportUnavailable when the reader is known
// disconnected or the circuit breaker has tripped on repeated publish
// failures, instead of letting the caller hang on a best-effort publish.
// Every dispatch is tagged with an opaque correlation id: the broker
// command contract carries no request/response id of its own, so this is
// for matching a dispatch log line to the async data/response log line by
// eye, not for routing.
func (c *Control) guarded(op string, fn func() error) error {
	correlationID := uuid.NewString()
	logger := c.logger.With().Str("op", op).Str("correlation_id", correlationID).Logger()

	if !c.gateway.IsConnected() {
		logger.Warn().Msg("rejected: reader not connected")
		return apierr.TransportUnavailable(op + ": reader not connected")
	}

	logger.Debug().Msg("dispatching reader command")
	err := c.breaker.Execute(fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		logger.Warn().Msg("reader gateway circuit open")
		return apierr.TransportUnavailable(op + ": reader gateway unavailable")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("reader command failed")
		return apierr.Wrap(apierr.KindTransportUnavailable, op, err)
	}
	return nil
}
