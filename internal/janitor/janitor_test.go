// SPDX-License-Identifier: MIT

package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStore struct {
	calls   atomic.Int32
	deleted int
	err     error
}

func (s *fakeStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	s.calls.Add(1)
	return s.deleted, s.err
}

type fakeEngine struct {
	evicted int
	calls   atomic.Int32
}

func (e *fakeEngine) Evict(cutoff time.Time) int {
	e.calls.Add(1)
	return e.evicted
}

func TestJanitorSweepsOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{deleted: 3}
	engine := &fakeEngine{evicted: 2}
	j := New(store, engine, func() time.Duration { return 5 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return store.calls.Load() >= 2 && engine.calls.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestJanitorBacksOffOnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{err: errors.New("disk full")}
	j := New(store, nil, func() time.Duration { return time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
