// SPDX-License-Identifier: MIT

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock abstracts time for deterministic testing
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cb", 2, 2, time.Minute, 100*time.Millisecond, WithClock(clk), WithHalfOpenSuccessThreshold(1))

	// Initial state: Closed
	assert.Equal(t, StateClosed, cb.GetState())

	// 1st failure: one attempt short of minAttempts, stays Closed
	err := cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateClosed, cb.GetState())

	// 2nd failure: threshold and minAttempts both met, trips Open
	err = cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())

	// Request while Open: rejected immediately, fn never runs
	err = cb.Execute(func() error { return nil })
	assert.True(t, errors.Is(err, ErrCircuitOpen))

	// Advance time past resetTimeout
	clk.Advance(150 * time.Millisecond)

	// Next request: allowed (HalfOpen) -> success -> Closed
	err = cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("test_cb", 1, 1, time.Minute, 100*time.Millisecond, WithClock(clk))

	// Open the circuit
	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.GetState())

	// Wait for reset
	clk.Advance(150 * time.Millisecond)

	// HalfOpen failure: goes back to Open immediately
	err := cb.Execute(func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("panic_cb", 1, 1, time.Minute, time.Minute, WithPanicRecovery(true))

	// Execute function that panics
	assert.Panics(t, func() {
		_ = cb.Execute(func() error {
			panic("oops")
		})
	})

	// Recovered panic counts as a technical failure and opens the circuit
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_NoPanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("no_panic_cb", 1, 1, time.Minute, time.Minute, WithPanicRecovery(false))

	// Execute function that panics
	assert.Panics(t, func() {
		_ = cb.Execute(func() error {
			panic("oops")
		})
	})

	// No recovery means no RecordTechnicalFailure call, so the attempt is
	// logged but no failure is, and the circuit stays Closed.
	assert.Equal(t, StateClosed, cb.GetState())
}
