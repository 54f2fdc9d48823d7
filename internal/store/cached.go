// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nordlock/sentrygate/internal/cache"
)

// cachedLookupTTL bounds how long a Get result is trusted from cache. It is
// deliberately short: long enough to absorb a burst of repeat reads from
// the decision engine across a fleet of gate-reader instances sharing one
// store, short enough that a write on another instance becomes visible
// quickly even without an explicit invalidation.
const cachedLookupTTL = 5 * time.Second

// CachedStore wraps a Store with an optional shared Get cache, so multiple
// gate instances pointed at the same backing store do not each hammer it
// with repeat lookups for the same QR code during a detection burst.
// Writes invalidate the cache entry directly rather than waiting out the
// TTL, since a stale PAID/IN_CART row read right after checkout would
// misclassify the next detection.
type CachedStore struct {
	*Store
	cache cache.Cache
}

// NewCachedStore wraps s with c. c may be a Redis-backed cache (shared
// across instances) or an in-memory one (single-instance, mostly useful
// for coalescing concurrent lookups of the same hot QR code).
func NewCachedStore(s *Store, c cache.Cache) *CachedStore {
	return &CachedStore{Store: s, cache: c}
}

// Get consults the cache before falling back to the underlying Store.
func (c *CachedStore) Get(ctx context.Context, qr string, now time.Time) (TagState, bool, error) {
	if cached, ok := c.cache.Get(qr); ok {
		if ts, ok := decodeTagState(cached); ok && ts.ExpiresAt >= now.Unix() {
			return ts, true, nil
		}
	}

	ts, found, err := c.Store.Get(ctx, qr, now)
	if err == nil && found {
		c.cache.Set(qr, ts, cachedLookupTTL)
	}
	return ts, found, err
}

// UpsertInCart invalidates the cache entries it touches, then delegates.
func (c *CachedStore) UpsertInCart(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (int, int, error) {
	upserted, ignoredPaid, err := c.Store.UpsertInCart(ctx, qrs, orderID, posID, storeID, ttl, now)
	c.invalidate(qrs)
	return upserted, ignoredPaid, err
}

// UpsertPaid invalidates the cache entries it touches, then delegates.
func (c *CachedStore) UpsertPaid(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (int, error) {
	upserted, err := c.Store.UpsertPaid(ctx, qrs, orderID, posID, storeID, ttl, now)
	c.invalidate(qrs)
	return upserted, err
}

// Remove invalidates the cache entries it touches, then delegates.
func (c *CachedStore) Remove(ctx context.Context, qrs []string, orderID string) (int, error) {
	deleted, err := c.Store.Remove(ctx, qrs, orderID)
	c.invalidate(qrs)
	return deleted, err
}

func (c *CachedStore) invalidate(qrs []string) {
	for _, qr := range qrs {
		c.cache.Delete(qr)
	}
}

// decodeTagState recovers a TagState from whatever the cache handed back.
// The in-memory backend returns the exact value passed to Set; the
// Redis backend returns the result of decoding its own JSON round-trip
// into a generic value. Re-marshaling and decoding into TagState handles
// both uniformly since TagState has no custom JSON tags.
func decodeTagState(v any) (TagState, bool) {
	if ts, ok := v.(TagState); ok {
		return ts, true
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return TagState{}, false
	}
	var ts TagState
	if err := json.Unmarshal(raw, &ts); err != nil {
		return TagState{}, false
	}
	return ts, true
}
