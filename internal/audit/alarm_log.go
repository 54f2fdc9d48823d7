// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nordlock/sentrygate/internal/epc"
	"github.com/nordlock/sentrygate/internal/persistence/sqlite"
)

// AlarmEvent is one append-only row in the alarm log.
type AlarmEvent struct {
	ID        int64
	GateID    string
	EPC       string
	QRCode    string
	RSSI      sql.NullFloat64
	Antenna   sql.NullInt64
	CreatedAt int64
}

const schemaAlarmEvent = `
CREATE TABLE IF NOT EXISTS alarm_event (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	gate_id    TEXT NOT NULL,
	epc        TEXT NOT NULL,
	qr_code    TEXT,
	rssi       REAL,
	antenna    INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alarm_event_created_at ON alarm_event(created_at);
CREATE INDEX IF NOT EXISTS idx_alarm_event_qr_code ON alarm_event(qr_code);
`

// AlarmLog is the durable, append-only record of ALARM decisions. Append
// must complete synchronously so an alarm can never be lost to a crash in
// a downstream fan-out.
type AlarmLog struct {
	db *sql.DB
}

// OpenAlarmLog opens (creating if absent) the alarm log at path, adding the
// qr_code column to a legacy table that lacks it.
func OpenAlarmLog(path string) (*AlarmLog, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("audit: open alarm log: %w", err)
	}

	if err := migrateAlarmEventSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: migrate alarm log: %w", err)
	}
	if _, err := db.Exec(schemaAlarmEvent); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create alarm schema: %w", err)
	}

	return &AlarmLog{db: db}, nil
}

// OpenAlarmLogWithDB wraps an already-open database handle, for deployments
// that share one SQLite file between the tag-state store and the alarm log.
func OpenAlarmLogWithDB(db *sql.DB) (*AlarmLog, error) {
	if err := migrateAlarmEventSchema(db); err != nil {
		return nil, fmt.Errorf("audit: migrate alarm log: %w", err)
	}
	if _, err := db.Exec(schemaAlarmEvent); err != nil {
		return nil, fmt.Errorf("audit: create alarm schema: %w", err)
	}
	return &AlarmLog{db: db}, nil
}

func migrateAlarmEventSchema(db *sql.DB) error {
	var tableExists int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='alarm_event'`).Scan(&tableExists); err != nil || tableExists == 0 {
		return nil
	}

	rows, err := db.Query(`PRAGMA table_info(alarm_event)`)
	if err != nil {
		return fmt.Errorf("table_info: %w", err)
	}
	defer rows.Close()

	hasQRCode, hasEPC, hasTagID := false, false, false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		switch name {
		case "qr_code":
			hasQRCode = true
		case "epc":
			hasEPC = true
		case "tag_id":
			hasTagID = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if hasTagID && !hasEPC {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`ALTER TABLE alarm_event RENAME TO alarm_event_old`); err != nil {
			return err
		}
		if _, err := tx.Exec(schemaAlarmEvent); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO alarm_event (id, gate_id, epc, qr_code, rssi, antenna, created_at)
			SELECT id, gate_id, tag_id, NULL, rssi, antenna, created_at FROM alarm_event_old
		`); err != nil {
			return err
		}
		if _, err := tx.Exec(`DROP TABLE alarm_event_old`); err != nil {
			return err
		}
		return tx.Commit()
	}

	if !hasQRCode {
		_, err := db.Exec(`ALTER TABLE alarm_event ADD COLUMN qr_code TEXT`)
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (l *AlarmLog) Close() error {
	return l.db.Close()
}

// Append durably records one alarm event and returns its monotonic id.
func (l *AlarmLog) Append(ctx context.Context, gateID, rawEPC, qr string, rssi *float64, antenna *int, now time.Time) (int64, error) {
	var rssiArg any
	if rssi != nil {
		rssiArg = *rssi
	}
	var antennaArg any
	if antenna != nil {
		antennaArg = *antenna
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO alarm_event (gate_id, epc, qr_code, rssi, antenna, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		gateID, rawEPC, nullIfEmpty(epc.Normalize(qr)), rssiArg, antennaArg, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("audit: append alarm event: %w", err)
	}
	return res.LastInsertId()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Query returns alarm rows ordered by created_at descending, optionally
// bounded by [fromTS, toTS], paginated with page (1-indexed) and limit.
func (l *AlarmLog) Query(ctx context.Context, fromTS, toTS *int64, page, limit int) ([]AlarmEvent, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	where := "1=1"
	args := []any{}
	if fromTS != nil {
		where += " AND created_at >= ?"
		args = append(args, *fromTS)
	}
	if toTS != nil {
		where += " AND created_at <= ?"
		args = append(args, *toTS)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM alarm_event WHERE %s`, where)
	if err := l.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count alarm events: %w", err)
	}

	listArgs := append(append([]any{}, args...), limit, (page-1)*limit)
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, gate_id, epc, qr_code, rssi, antenna, created_at
		FROM alarm_event WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, where), listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: query alarm events: %w", err)
	}
	defer rows.Close()

	var events []AlarmEvent
	for rows.Next() {
		var e AlarmEvent
		var qr sql.NullString
		if err := rows.Scan(&e.ID, &e.GateID, &e.EPC, &qr, &e.RSSI, &e.Antenna, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("audit: scan alarm event: %w", err)
		}
		e.QRCode = qr.String
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// CountLast counts alarm rows created within window of now.
func (l *AlarmLog) CountLast(ctx context.Context, window time.Duration, now time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alarm_event WHERE created_at >= ?`, now.Add(-window).Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("audit: count_last: %w", err)
	}
	return count, nil
}

// QueryAll streams every alarm row in [fromTS, toTS], unpaginated, for CSV
// export. rows must be closed by the caller.
func (l *AlarmLog) QueryAll(ctx context.Context, fromTS, toTS *int64) (*sql.Rows, error) {
	where := "1=1"
	args := []any{}
	if fromTS != nil {
		where += " AND created_at >= ?"
		args = append(args, *fromTS)
	}
	if toTS != nil {
		where += " AND created_at <= ?"
		args = append(args, *toTS)
	}

	rows, err := l.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, gate_id, epc, qr_code, rssi, antenna, created_at
		FROM alarm_event WHERE %s ORDER BY created_at ASC`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query_all alarm events: %w", err)
	}
	return rows, nil
}
