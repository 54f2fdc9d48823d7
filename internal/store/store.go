// SPDX-License-Identifier: MIT

// Package store implements the TTL-indexed persistent mapping of QR code to
// commerce state that the decision engine consults on every detection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nordlock/sentrygate/internal/epc"
	"github.com/nordlock/sentrygate/internal/persistence/sqlite"
)

// State is the commerce lifecycle state of a tag.
type State string

const (
	StateInCart State = "IN_CART"
	StatePaid   State = "PAID"
)

// TagState is a row in the store, keyed by canonical QR code.
type TagState struct {
	QRCode    string
	State     State
	OrderID   string
	POSID     string
	StoreID   string
	UpdatedAt int64
	ExpiresAt int64
}

const schemaTagState = `
CREATE TABLE IF NOT EXISTS tag_state (
	qr_code    TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	order_id   TEXT,
	pos_id     TEXT,
	store_id   TEXT,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tag_state_expires_at ON tag_state(expires_at);
CREATE INDEX IF NOT EXISTS idx_tag_state_state ON tag_state(state);
CREATE INDEX IF NOT EXISTS idx_tag_state_order_id ON tag_state(order_id);
`

// Store is the TTL-indexed tag-state store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite-backed store at path, running
// the legacy tag_id-to-qr_code migration if an old schema is present.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if err := migrateLegacySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if _, err := db.Exec(schemaTagState); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateLegacySchema renames a pre-existing tag_id-keyed table to the
// current qr_code schema. Idempotent: a no-op once migrated.
func migrateLegacySchema(db *sql.DB) error {
	var tableExists int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='tag_state'`).Scan(&tableExists)
	if err != nil || tableExists == 0 {
		return nil
	}

	rows, err := db.Query(`PRAGMA table_info(tag_state)`)
	if err != nil {
		return fmt.Errorf("table_info: %w", err)
	}
	defer rows.Close()

	hasTagID, hasQRCode := false, false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		switch name {
		case "tag_id":
			hasTagID = true
		case "qr_code":
			hasQRCode = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasTagID || hasQRCode {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`ALTER TABLE tag_state RENAME TO tag_state_old`); err != nil {
		return err
	}
	if _, err := tx.Exec(schemaTagState); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO tag_state (qr_code, state, order_id, pos_id, store_id, updated_at, expires_at)
		SELECT tag_id, state, order_id, pos_id, store_id, updated_at, expires_at FROM tag_state_old
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE tag_state_old`); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the row for qr iff it is present and not expired as of now.
func (s *Store) Get(ctx context.Context, qr string, now time.Time) (TagState, bool, error) {
	qr = epc.Normalize(qr)
	row := s.db.QueryRowContext(ctx, `
		SELECT qr_code, state, order_id, pos_id, store_id, updated_at, expires_at
		FROM tag_state WHERE qr_code = ? AND expires_at >= ?`,
		qr, now.Unix())

	var ts TagState
	var orderID, posID, storeID sql.NullString
	if err := row.Scan(&ts.QRCode, &ts.State, &orderID, &posID, &storeID, &ts.UpdatedAt, &ts.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return TagState{}, false, nil
		}
		return TagState{}, false, fmt.Errorf("store: get: %w", err)
	}
	ts.OrderID, ts.POSID, ts.StoreID = orderID.String, posID.String, storeID.String
	return ts, true, nil
}

// UpsertInCart writes IN_CART rows for qrs, skipping any row already PAID
// and unexpired. Returns the number written and the number skipped.
func (s *Store) UpsertInCart(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (upserted, ignoredPaid int, err error) {
	if len(qrs) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("store: upsert_in_cart begin: %w", err)
	}
	defer tx.Rollback()

	nowSec, expiresAt := now.Unix(), now.Add(ttl).Unix()

	for _, raw := range qrs {
		qr := epc.Normalize(raw)
		res, execErr := tx.ExecContext(ctx, `
			INSERT INTO tag_state (qr_code, state, order_id, pos_id, store_id, updated_at, expires_at)
			VALUES (?, 'IN_CART', ?, ?, ?, ?, ?)
			ON CONFLICT(qr_code) DO UPDATE SET
				state = excluded.state,
				order_id = excluded.order_id,
				pos_id = excluded.pos_id,
				store_id = excluded.store_id,
				updated_at = excluded.updated_at,
				expires_at = excluded.expires_at
			WHERE tag_state.state != 'PAID' OR tag_state.expires_at < ?`,
			qr, orderID, posID, storeID, nowSec, expiresAt, nowSec)
		if execErr != nil {
			return 0, 0, fmt.Errorf("store: upsert_in_cart: %w", execErr)
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			upserted++
		} else {
			ignoredPaid++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: upsert_in_cart commit: %w", err)
	}
	return upserted, ignoredPaid, nil
}

// UpsertPaid unconditionally writes PAID rows for qrs, superseding any
// prior IN_CART or PAID row for the same QR.
func (s *Store) UpsertPaid(ctx context.Context, qrs []string, orderID, posID, storeID string, ttl time.Duration, now time.Time) (upserted int, err error) {
	if len(qrs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: upsert_paid begin: %w", err)
	}
	defer tx.Rollback()

	nowSec, expiresAt := now.Unix(), now.Add(ttl).Unix()

	for _, raw := range qrs {
		qr := epc.Normalize(raw)
		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO tag_state (qr_code, state, order_id, pos_id, store_id, updated_at, expires_at)
			VALUES (?, 'PAID', ?, ?, ?, ?, ?)
			ON CONFLICT(qr_code) DO UPDATE SET
				state = excluded.state,
				order_id = excluded.order_id,
				pos_id = excluded.pos_id,
				store_id = excluded.store_id,
				updated_at = excluded.updated_at,
				expires_at = excluded.expires_at`,
			qr, orderID, posID, storeID, nowSec, expiresAt); execErr != nil {
			return 0, fmt.Errorf("store: upsert_paid: %w", execErr)
		}
		upserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: upsert_paid commit: %w", err)
	}
	return upserted, nil
}

// Remove deletes rows matching qr in qrs, optionally also filtered by
// orderID.
func (s *Store) Remove(ctx context.Context, qrs []string, orderID string) (deleted int, err error) {
	if len(qrs) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(qrs)), ",")
	args := make([]any, 0, len(qrs)+1)
	for _, raw := range qrs {
		args = append(args, epc.Normalize(raw))
	}

	query := fmt.Sprintf(`DELETE FROM tag_state WHERE qr_code IN (%s)`, placeholders)
	if orderID != "" {
		query += ` AND order_id = ?`
		args = append(args, orderID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: remove: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Cleanup deletes all rows expired as of now. Invoked by the TTL janitor.
func (s *Store) Cleanup(ctx context.Context, now time.Time) (deleted int, err error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tag_state WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("store: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Counts reports the number of non-expired rows in each state.
type Counts struct {
	InCart int
	Paid   int
}

// Counts returns the current non-expired row counts grouped by state.
func (s *Store) Counts(ctx context.Context, now time.Time) (Counts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM tag_state WHERE expires_at >= ? GROUP BY state`, now.Unix())
	if err != nil {
		return Counts{}, fmt.Errorf("store: counts: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return Counts{}, fmt.Errorf("store: counts scan: %w", err)
		}
		switch State(state) {
		case StateInCart:
			c.InCart = n
		case StatePaid:
			c.Paid = n
		}
	}
	return c, rows.Err()
}
