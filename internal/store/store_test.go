// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "gate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertInCartThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	upserted, ignored, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Minute, now)
	if err != nil {
		t.Fatalf("UpsertInCart: %v", err)
	}
	if upserted != 1 || ignored != 0 {
		t.Fatalf("got upserted=%d ignored=%d, want 1,0", upserted, ignored)
	}

	row, ok, err := s.Get(ctx, "abc1234", now)
	if err != nil || !ok {
		t.Fatalf("Get: row=%v ok=%v err=%v", row, ok, err)
	}
	if row.State != StateInCart {
		t.Fatalf("state = %v, want IN_CART", row.State)
	}
}

func TestUpsertInCartIgnoresPaid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := ensureUpsertPaid(ctx, s, []string{"ABC1234"}, now); err != nil {
		t.Fatalf("seed paid: %v", err)
	}

	upserted, ignored, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-2", "pos-1", "store-1", time.Minute, now)
	if err != nil {
		t.Fatalf("UpsertInCart: %v", err)
	}
	if upserted != 0 || ignored != 1 {
		t.Fatalf("got upserted=%d ignored=%d, want 0,1", upserted, ignored)
	}

	row, ok, err := s.Get(ctx, "ABC1234", now)
	if err != nil || !ok {
		t.Fatalf("Get after ignored upsert: %v %v %v", row, ok, err)
	}
	if row.State != StatePaid {
		t.Fatalf("state = %v, want PAID to remain untouched", row.State)
	}
}

func ensureUpsertPaid(ctx context.Context, s *Store, qrs []string, now time.Time) (int, error) {
	return s.UpsertPaid(ctx, qrs, "ord-1", "pos-1", "store-1", time.Minute, now)
}

func TestUpsertPaidSupersedesInCart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, _, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Minute, now); err != nil {
		t.Fatalf("seed in-cart: %v", err)
	}
	n, err := s.UpsertPaid(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Minute, now)
	if err != nil {
		t.Fatalf("UpsertPaid: %v", err)
	}
	if n != 1 {
		t.Fatalf("upserted = %d, want 1", n)
	}

	row, ok, err := s.Get(ctx, "ABC1234", now)
	if err != nil || !ok {
		t.Fatalf("Get: %v %v %v", row, ok, err)
	}
	if row.State != StatePaid {
		t.Fatalf("state = %v, want PAID", row.State)
	}
}

func TestGetExpiredRowIsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	if _, _, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Second, past); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, ok, err := s.Get(ctx, "ABC1234", time.Now())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected expired row to be reported absent")
	}
}

func TestRemoveScopedByOrderID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, _, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Minute, now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := s.Remove(ctx, []string{"ABC1234"}, "ord-2")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected no rows deleted for mismatched order_id, got %d", deleted)
	}

	deleted, err = s.Remove(ctx, []string{"ABC1234"}, "ord-1")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 row deleted, got %d", deleted)
	}
}

func TestCleanupDeletesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	if _, _, err := s.UpsertInCart(ctx, []string{"ABC1234"}, "ord-1", "pos-1", "store-1", time.Second, past); err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := s.Cleanup(ctx, time.Now())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, _, err := s.UpsertInCart(ctx, []string{"AAA1111", "BBB2222"}, "ord-1", "pos-1", "store-1", time.Minute, now); err != nil {
		t.Fatalf("seed in-cart: %v", err)
	}
	if _, err := s.UpsertPaid(ctx, []string{"CCC3333"}, "ord-1", "pos-1", "store-1", time.Minute, now); err != nil {
		t.Fatalf("seed paid: %v", err)
	}

	counts, err := s.Counts(ctx, now)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.InCart != 2 || counts.Paid != 1 {
		t.Fatalf("counts = %+v, want InCart=2 Paid=1", counts)
	}
}
