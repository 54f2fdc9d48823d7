// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeFileAtomic rewrites path via a temp-file-plus-rename so that a crash
// or concurrent reload never observes a partially written config file.
func writeFileAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}
	return nil
}
