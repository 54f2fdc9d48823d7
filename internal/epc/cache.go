// SPDX-License-Identifier: MIT

package epc

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedDecoder memoizes Decode results behind a bounded LRU cache. Decode is
// pure and cheap, but at high read rates (many antennas, many gates) a memo
// avoids repeated string scanning for tags that linger in the field.
type CachedDecoder struct {
	cache *lru.Cache[string, string]
}

// NewCachedDecoder builds a CachedDecoder holding up to size recent entries.
func NewCachedDecoder(size int) (*CachedDecoder, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedDecoder{cache: c}, nil
}

// Decode returns the memoized decode of raw, computing and storing it on a
// cache miss.
func (d *CachedDecoder) Decode(raw string) string {
	if qr, ok := d.cache.Get(raw); ok {
		return qr
	}
	qr := Decode(raw)
	d.cache.Add(raw, qr)
	return qr
}

// Len reports the number of memoized entries currently held.
func (d *CachedDecoder) Len() int {
	return d.cache.Len()
}

// Purge clears all memoized entries.
func (d *CachedDecoder) Purge() {
	d.cache.Purge()
}
