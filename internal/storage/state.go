// Package storage keeps versioned JSON state keyed by (kind, id).
package storage

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Record is one stored payload with its bookkeeping.
type Record struct {
	ID        string
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}

// Store provides generic versioned state storage with JSON payloads.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new generic state store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves one record, or nil if it does not exist.
func (s *Store) Get(kind, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &Record{ID: id}
	var payloadStr string
	var updatedAt int64
	err := s.db.QueryRow(`
		SELECT payload, version, updated_at FROM resource_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payloadStr, &rec.Version, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Payload = []byte(payloadStr)
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rec, nil
}

// Set stores payload, incrementing version automatically.
func (s *Store) Set(kind, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
	`, kind, id, string(payload), time.Now().UTC().Unix())

	if err == nil {
		log.Debug().Str("kind", kind).Str("id", id).Msg("State cached")
	}
	return err
}

// Delete removes a resource state entry.
func (s *Store) Delete(kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id)
	return err
}

// Clear removes all state for a kind. If kind is empty, clears all state.
func (s *Store) Clear(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if kind == "" {
		_, err = s.db.Exec(`DELETE FROM resource_state`)
	} else {
		_, err = s.db.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind)
	}
	return err
}

// List returns all records of a kind ordered by id.
func (s *Store) List(kind string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payload, version, updated_at FROM resource_state
		WHERE kind = ? ORDER BY id
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var payloadStr string
		var updatedAt int64
		if err := rows.Scan(&rec.ID, &payloadStr, &rec.Version, &updatedAt); err != nil {
			return nil, err
		}
		rec.Payload = []byte(payloadStr)
		rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
