// SPDX-License-Identifier: MIT

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRunStatusBroadcasterStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		RunStatusBroadcaster(ctx, b, func() (bool, int, int) { return true, 2, 1 })
		close(done)
	}()

	// No subscriber yet: nothing to assert other than "does not panic".
	time.Sleep(10 * time.Millisecond)

	sink := &fakeSink{}
	b.Subscribe(sink)

	cancel()
	<-done
}
