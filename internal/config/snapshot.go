// SPDX-License-Identifier: MIT

package config

// Snapshot is the immutable, effective configuration at a point in time.
// Epoch increments on every successful swap so callers holding a Snapshot
// can detect, without locking, that a newer one exists.
type Snapshot struct {
	Epoch uint64
	App   AppConfig
}

// BuildSnapshot wraps an already-validated AppConfig. Epoch is assigned by
// the Holder on swap, not here.
func BuildSnapshot(app AppConfig) Snapshot {
	return Snapshot{App: app}
}
