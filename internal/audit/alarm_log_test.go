// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestAlarmLog(t *testing.T) *AlarmLog {
	t.Helper()
	dir := t.TempDir()
	l, err := OpenAlarmLog(filepath.Join(dir, "alarms.db"))
	if err != nil {
		t.Fatalf("OpenAlarmLog: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAlarmLogAppendAndQuery(t *testing.T) {
	l := newTestAlarmLog(t)
	ctx := context.Background()
	now := time.Now()

	rssi := -42.5
	antenna := 1
	id, err := l.Append(ctx, "gate-1", "A0B0C01234FFFFFFFFFF", "ABC1234", &rssi, &antenna, now)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1 (monotonic from empty table)", id)
	}

	events, total, err := l.Query(ctx, nil, nil, 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("total=%d len(events)=%d, want 1,1", total, len(events))
	}
	if events[0].QRCode != "ABC1234" || events[0].GateID != "gate-1" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestAlarmLogQueryOrdersDescending(t *testing.T) {
	l := newTestAlarmLog(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := l.Append(ctx, "gate-1", "raw", "QR", nil, nil, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	events, total, err := l.Query(ctx, nil, nil, 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	for i := 0; i < len(events)-1; i++ {
		if events[i].CreatedAt < events[i+1].CreatedAt {
			t.Fatalf("events not ordered descending by created_at: %+v", events)
		}
	}
}

func TestAlarmLogCountLast(t *testing.T) {
	l := newTestAlarmLog(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := l.Append(ctx, "gate-1", "raw", "QR", nil, nil, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("Append old: %v", err)
	}
	if _, err := l.Append(ctx, "gate-1", "raw", "QR", nil, nil, now); err != nil {
		t.Fatalf("Append recent: %v", err)
	}

	count, err := l.CountLast(ctx, time.Hour, now)
	if err != nil {
		t.Fatalf("CountLast: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountLast(1h) = %d, want 1", count)
	}
}
