// SPDX-License-Identifier: MIT

// Command migrate applies the tag-state store's and alarm log's schema
// migrations against a data directory and verifies both databases for
// corruption, without starting the daemon's network-facing components. Run
// it before a daemon upgrade, or as a standalone operations health check.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nordlock/sentrygate/internal/audit"
	"github.com/nordlock/sentrygate/internal/persistence/sqlite"
	"github.com/nordlock/sentrygate/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", "/var/lib/sentrygate", "data directory containing the gate databases")
	dbPath := flag.String("db-path", "", "path to the tag-state database (defaults to <data-dir>/gate.db)")
	full := flag.Bool("full", false, "run PRAGMA integrity_check instead of quick_check")
	flag.Parse()

	tagStatePath := *dbPath
	if tagStatePath == "" {
		tagStatePath = filepath.Join(*dataDir, "gate.db")
	}
	alarmLogPath := filepath.Join(*dataDir, "alarms.db")

	if err := migrateAndVerify(tagStatePath, alarmLogPath, *full); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	fmt.Println("migrate: both databases are healthy")
}

func migrateAndVerify(tagStatePath, alarmLogPath string, full bool) error {
	// Opening each store applies its schema migration as a side effect, so
	// running this ahead of the daemon surfaces migration failures before
	// the control-plane API comes up.
	st, err := store.Open(tagStatePath)
	if err != nil {
		return fmt.Errorf("tag-state store %s: %w", tagStatePath, err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("tag-state store %s: close: %w", tagStatePath, err)
	}

	alarmLog, err := audit.OpenAlarmLog(alarmLogPath)
	if err != nil {
		return fmt.Errorf("alarm log %s: %w", alarmLogPath, err)
	}
	if err := alarmLog.Close(); err != nil {
		return fmt.Errorf("alarm log %s: close: %w", alarmLogPath, err)
	}

	mode := "quick"
	if full {
		mode = "full"
	}

	if problems, err := sqlite.VerifyIntegrity(tagStatePath, mode); err != nil {
		return fmt.Errorf("tag-state store %s: verify: %w", tagStatePath, err)
	} else if len(problems) > 0 {
		return fmt.Errorf("tag-state store %s: integrity check failed: %v", tagStatePath, problems)
	}

	if problems, err := sqlite.VerifyIntegrity(alarmLogPath, mode); err != nil {
		return fmt.Errorf("alarm log %s: verify: %w", alarmLogPath, err)
	} else if len(problems) > 0 {
		return fmt.Errorf("alarm log %s: integrity check failed: %v", alarmLogPath, problems)
	}

	return nil
}
