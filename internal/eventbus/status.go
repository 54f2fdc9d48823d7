// SPDX-License-Identifier: MIT

package eventbus

import (
	"context"
	"time"
)

const statusTick = 5 * time.Second

// StatusProvider reports the point-in-time values a STATUS_UPDATE carries.
type StatusProvider func() (mqttConnected bool, inCartCount, paidCount int)

// RunStatusBroadcaster ticks every 5s, emitting a STATUS_UPDATE on bus only
// while at least one subscriber is connected, until ctx is canceled.
func RunStatusBroadcaster(ctx context.Context, bus *Bus, provider StatusProvider) {
	ticker := time.NewTicker(statusTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if bus.SubscriberCount() == 0 {
				continue
			}
			connected, inCart, paid := provider()
			bus.Broadcast(StatusUpdate{
				Type:          TypeStatusUpdate,
				MQTTConnected: connected,
				InCartCount:   inCart,
				PaidCount:     paid,
			})
		}
	}
}
