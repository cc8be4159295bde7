// Package ledger records an append-only history of device commands.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the kind of history entry.
type EventType string

const (
	EventCommandCompleted EventType = "command_completed"
	EventCommandFailed    EventType = "command_failed"
)

// Entry is a single recorded event.
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	Device    string
	Payload   map[string]any
	Source    string
	BatchID   string
}

// Command returns the payload's command name, if any.
func (e *Entry) Command() string {
	cmd, _ := e.Payload["command"].(string)
	return cmd
}

// Ledger is the command history table.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// AppendWithSource records an event tagged with its origin and the batch it
// was part of (empty for single-device commands).
func (l *Ledger) AppendWithSource(eventType EventType, device, source, batchID string, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err := l.db.Exec(
		`INSERT INTO event_ledger (event_type, timestamp, device, payload, source, batch_id) VALUES (?, ?, ?, ?, ?, ?)`,
		string(eventType), l.now().UTC().UnixMilli(), device, string(payloadJSON), source, batchID,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, event_type, timestamp, device, payload, source, batch_id FROM event_ledger`

// Recent returns the newest entries first.
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(selectColumns+` ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByDevice returns the newest entries for one device.
func (l *Ledger) GetByDevice(device string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(selectColumns+` WHERE device = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, device, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByBatch returns all entries of a batch in insertion order.
func (l *Ledger) GetByBatch(batchID string) ([]*Entry, error) {
	rows, err := l.db.Query(selectColumns+` WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the retention period.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM event_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var device, payloadStr, source, batchID sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &device, &payloadStr, &source, &batchID); err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.Device = device.String
		entry.Source = source.String
		entry.BatchID = batchID.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
