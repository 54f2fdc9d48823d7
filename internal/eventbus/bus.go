// SPDX-License-Identifier: MIT

package eventbus

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nordlock/sentrygate/internal/log"
)

// Sink is one live subscriber. Send delivers one already-encoded event; a
// returned error causes the bus to unsubscribe and close the sink.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// Bus maintains the set of live subscribers and fans out events to them.
// Mutation of the subscriber set (Subscribe/Unsubscribe and
// broadcast-failure pruning) is serialized by mu, per the core's
// concurrency model.
type Bus struct {
	mu     sync.Mutex
	sinks  map[Sink]struct{}
	logger zerolog.Logger
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		sinks:  make(map[Sink]struct{}),
		logger: log.WithComponent("eventbus"),
	}
}

// Subscribe registers sink to receive all future broadcasts.
func (b *Bus) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[sink] = struct{}{}
}

// Unsubscribe deregisters sink. Safe to call more than once.
func (b *Bus) Unsubscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sinks[sink]; ok {
		delete(b.sinks, sink)
		_ = sink.Close()
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}

// Broadcast JSON-encodes payload and sends it to every subscriber,
// removing any sink whose Send fails.
func (b *Bus) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for sink := range b.sinks {
		if err := sink.Send(data); err != nil {
			b.logger.Warn().Err(err).Msg("sink rejected broadcast, removing")
			delete(b.sinks, sink)
			_ = sink.Close()
		}
	}
}
