// go-kiosk
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-kiosk.
//
// go-kiosk is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-kiosk is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-kiosk; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package directory

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS activity (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	location    TEXT NOT NULL,
	log_key     TEXT NOT NULL,
	recorded_at INTEGER NOT NULL,
	synced      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS activity_recorded_at ON activity (recorded_at);
`

// LedgerEntry is one locally recorded activity write.
type LedgerEntry struct {
	RecordedAt time.Time
	ID         string
	UserID     string
	Action     string
	Location   string
	LogKey     string
	// Error is the backend failure, empty once Synced.
	Error  string
	Synced bool
}

// Ledger is the kiosk's local record of every check-in and check-out it
// attempted, kept in SQLite so an operator can audit the kiosk when the
// backend was unreachable.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append stores e as not yet synced and returns its generated ID.
func (l *Ledger) Append(ctx context.Context, e LedgerEntry) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity (id, user_id, action, location, log_key, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, e.UserID, e.Action, e.Location, e.LogKey, e.RecordedAt.UTC().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert ledger entry: %w", err)
	}
	return id, nil
}

// MarkOutcome records whether the backend accepted entry id. A nil cause
// marks it synced.
func (l *Ledger) MarkOutcome(ctx context.Context, id string, cause error) error {
	synced, msg := 1, ""
	if cause != nil {
		synced, msg = 0, cause.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE activity SET synced = ?, error = ? WHERE id = ?`, synced, msg, id)
	if err != nil {
		return fmt.Errorf("update ledger entry %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger entry %s not found", id)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, action, location, log_key, recorded_at, synced, error
		 FROM activity ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LedgerEntry
	for rows.Next() {
		var (
			e      LedgerEntry
			millis int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Location, &e.LogKey, &millis, &e.Synced, &e.Error); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.RecordedAt = time.UnixMilli(millis).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return out, nil
}

// Unsynced counts entries the backend never accepted.
func (l *Ledger) Unsynced(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity WHERE synced = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unsynced entries: %w", err)
	}
	return n, nil
}
