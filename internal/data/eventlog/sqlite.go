package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	kind      TEXT    NOT NULL,
	version   INTEGER NOT NULL,
	payload   BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_kind_ts   ON events(kind, timestamp);
`

// SQLiteLog stores events in a local SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the event database at path.
func OpenSQLite(path string) (*SQLiteLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// The write path is serialized through the effects queue; a single
	// connection avoids SQLITE_BUSY churn under WAL.
	db.SetMaxOpenConns(1)

	return &SQLiteLog{db: db}, nil
}

// Append stores the event and returns its assigned id.
func (l *SQLiteLog) Append(ctx context.Context, ev event.TimelineEvent) (int64, error) {
	kind, version, data, err := event.EncodePayload(ev.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	res, err := l.db.ExecContext(ctx,
		"INSERT INTO events (timestamp, kind, version, payload) VALUES (?, ?, ?, ?)",
		ev.Timestamp, string(kind), version, data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return res.LastInsertId()
}

// Query returns all decodable events in [startMillis, endMillis],
// ordered by timestamp then id. Rows whose payloads no longer decode
// (unknown kind from a newer build, corrupt blob) are skipped.
func (l *SQLiteLog) Query(ctx context.Context, startMillis, endMillis int64) ([]event.TimelineEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, timestamp, kind, version, payload FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		startMillis, endMillis)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var events []event.TimelineEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// LatestOfKindBefore returns the newest event of the given kind
// strictly before beforeMillis.
func (l *SQLiteLog) LatestOfKindBefore(ctx context.Context, kind event.Kind, beforeMillis int64) (event.TimelineEvent, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT id, timestamp, kind, version, payload FROM events WHERE kind = ? AND timestamp < ? ORDER BY timestamp DESC, id DESC LIMIT 1",
		string(kind), beforeMillis)

	var (
		id, ts  int64
		k       string
		version int
		data    []byte
	)
	if err := row.Scan(&id, &ts, &k, &version, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.TimelineEvent{}, ErrNotFound
		}
		return event.TimelineEvent{}, fmt.Errorf("scan failed: %w", err)
	}

	payload, err := event.DecodePayload(event.Kind(k), version, data)
	if err != nil {
		return event.TimelineEvent{}, fmt.Errorf("failed to decode event %d: %w", id, err)
	}
	return event.TimelineEvent{ID: id, Timestamp: ts, Payload: payload}, nil
}

// Reset deletes all events.
func (l *SQLiteLog) Reset(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("failed to reset event log: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (l *SQLiteLog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func scanEvent(rows *sql.Rows) (*event.TimelineEvent, error) {
	var (
		id, ts  int64
		k       string
		version int
		data    []byte
	)
	if err := rows.Scan(&id, &ts, &k, &version, &data); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	payload, err := event.DecodePayload(event.Kind(k), version, data)
	if err != nil {
		util.LogWarnf("eventlog: skipping undecodable event %d (kind=%s): %v", id, k, err)
		return nil, nil
	}
	return &event.TimelineEvent{ID: id, Timestamp: ts, Payload: payload}, nil
}
