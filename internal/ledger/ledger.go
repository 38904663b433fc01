// Package ledger provides an append-only audit history of back-end
// translation activity, with event kinds for BackendRequests sent to an
// adapter, scenes the scene learner finalizes, and adapter
// connection-state transitions. No component of the bridge calls Append;
// internal/app uses the ledger only for its retention sweep.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the kind of event recorded in the ledger.
type EventType string

const (
	EventBackendRequestSent   EventType = "backend_request_sent"
	EventSceneActionsLearned  EventType = "scene_actions_learned"
	EventAdapterStateChanged  EventType = "adapter_state_changed"
)

// Entry represents a single event in the ledger.
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	Payload   map[string]any
	Source    string // adapter name, e.g. "z2m:living-room"
}

// Ledger provides append-only event logging.
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger.
func (l *Ledger) Append(eventType EventType, source string, payload map[string]any) error {
	var payloadJSON []byte
	var err error
	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ledger: marshal payload: %w", err)
		}
	}

	now := time.Now().UTC().Unix()
	_, err = l.db.Exec(
		`INSERT INTO event_ledger (event_type, timestamp, payload, source) VALUES (?, ?, ?, ?)`,
		string(eventType), now, string(payloadJSON), source,
	)
	return err
}

// GetByType returns entries filtered by event type, most recent first.
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, payload, source
		FROM event_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return l.scanEntries(rows)
}

// GetByTimeRange returns entries within [start, end], most recent first.
func (l *Ledger) GetByTimeRange(start, end time.Time, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, payload, source
		FROM event_ledger
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, start.Unix(), end.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than retention (config.LedgerConfig
// retention_period, swept every retention_interval by the caller).
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`DELETE FROM event_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &payloadStr, &source); err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if source.Valid {
			entry.Source = source.String
		}
		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("ledger: unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
