// SPDX-License-Identifier: MIT

package decision

import (
	"context"
	"testing"
	"time"

	"github.com/nordlock/sentrygate/internal/store"
)

type fakeStore struct {
	rows map[string]store.TagState
}

func (f *fakeStore) Get(_ context.Context, qr string, now time.Time) (store.TagState, bool, error) {
	row, ok := f.rows[qr]
	if !ok || row.ExpiresAt < now.Unix() {
		return store.TagState{}, false, nil
	}
	return row, true, nil
}

type fakeAudit struct {
	appends int
}

func (f *fakeAudit) Append(_ context.Context, _, _, _ string, _ *float64, _ *int, _ time.Time) (int64, error) {
	f.appends++
	return int64(f.appends), nil
}

func newEngineAt(cfg Config, st Store, audit AlarmAppender, start time.Time) (*Engine, *fakeClock) {
	e := New(cfg, st, audit)
	c := &fakeClock{now: start}
	e.clock = c.Now
	return e, c
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestDecide_NoMatchingRowYieldsAlarmAfterCooldown(t *testing.T) {
	st := &fakeStore{rows: map[string]store.TagState{}}
	audit := &fakeAudit{}
	e, _ := newEngineAt(Config{DebounceMS: 0, AlarmCooldown: 0}, st, audit, time.Now())

	d, err := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != Alarm || d.Reason != ReasonQRNotFound {
		t.Fatalf("got %+v, want ALARM/qr_not_found", d)
	}
	if audit.appends != 1 {
		t.Fatalf("appends = %d, want 1", audit.appends)
	}
}

func TestDecide_InCartNotAllowed(t *testing.T) {
	now := time.Now()
	st := &fakeStore{rows: map[string]store.TagState{
		"ABC": {QRCode: "ABC", State: store.StateInCart, ExpiresAt: now.Add(time.Hour).Unix()},
	}}
	audit := &fakeAudit{}
	e, _ := newEngineAt(Config{PassWhenInCart: false, AlarmCooldown: 0}, st, audit, now)

	d, err := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != Alarm || d.Reason != ReasonInCartNotAllowed || d.QRCode != "ABC" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecide_InCartAllowed(t *testing.T) {
	now := time.Now()
	st := &fakeStore{rows: map[string]store.TagState{
		"ABC": {QRCode: "ABC", State: store.StateInCart, ExpiresAt: now.Add(time.Hour).Unix()},
	}}
	e, _ := newEngineAt(Config{PassWhenInCart: true}, st, nil, now)

	d, err := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != Pass || d.Reason != ReasonInCartAllowed {
		t.Fatalf("got %+v", d)
	}
}

func TestDecide_Paid(t *testing.T) {
	now := time.Now()
	st := &fakeStore{rows: map[string]store.TagState{
		"ABC": {QRCode: "ABC", State: store.StatePaid, ExpiresAt: now.Add(time.Hour).Unix()},
	}}
	e, _ := newEngineAt(Config{}, st, nil, now)

	d, err := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Outcome != Pass || d.Reason != ReasonPaid {
		t.Fatalf("got %+v", d)
	}
}

func TestDecide_Debounce(t *testing.T) {
	st := &fakeStore{rows: map[string]store.TagState{}}
	audit := &fakeAudit{}
	e, clk := newEngineAt(Config{DebounceMS: 1000, AlarmCooldown: 0}, st, audit, time.Now())

	d1, _ := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if d1.Outcome != Alarm {
		t.Fatalf("first call = %+v, want ALARM", d1)
	}

	clk.Advance(200 * time.Millisecond)
	d2, _ := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if d2.Reason != ReasonDebounced {
		t.Fatalf("second call = %+v, want debounced", d2)
	}
	if audit.appends != 1 {
		t.Fatalf("appends = %d, want 1 (debounced call must not append)", audit.appends)
	}
}

func TestDecide_AlarmCooldownSequence(t *testing.T) {
	st := &fakeStore{rows: map[string]store.TagState{}}
	audit := &fakeAudit{}
	e, clk := newEngineAt(Config{DebounceMS: 0, AlarmCooldown: 500}, st, audit, time.Now())

	d1, _ := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if d1.Outcome != Alarm {
		t.Fatalf("call 1 = %+v, want ALARM", d1)
	}

	clk.Advance(200 * time.Millisecond)
	d2, _ := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if d2.Outcome != Pass || d2.Reason != ReasonAlarmCooldown {
		t.Fatalf("call 2 = %+v, want PASS/alarm_cooldown", d2)
	}

	clk.Advance(400 * time.Millisecond) // total +600ms from call 1
	d3, _ := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil)
	if d3.Outcome != Alarm {
		t.Fatalf("call 3 = %+v, want ALARM", d3)
	}
	if audit.appends != 2 {
		t.Fatalf("appends = %d, want 2", audit.appends)
	}
}

func TestEvictRemovesStaleEntries(t *testing.T) {
	st := &fakeStore{rows: map[string]store.TagState{}}
	e, clk := newEngineAt(Config{}, st, &fakeAudit{}, time.Now())

	if _, err := e.Decide(context.Background(), "A0B0C0FFFF", "gate-1", nil, nil); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	clk.Advance(2 * time.Hour)
	evicted := e.Evict(clk.now.Add(-time.Hour))
	if evicted == 0 {
		t.Fatal("expected at least one stale entry evicted")
	}
}
