package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Item is a decoded record.
type Item[T any] struct {
	ID        string
	Value     T
	Version   int64
	UpdatedAt time.Time
}

// TypedStore wraps Store with JSON marshaling for a specific type.
type TypedStore[T any] struct {
	store *Store
	kind  string
}

// NewTypedStore creates a new typed store wrapper for the given kind.
func NewTypedStore[T any](store *Store, kind string) *TypedStore[T] {
	return &TypedStore[T]{
		store: store,
		kind:  kind,
	}
}

// Kind returns the resource kind this store handles.
func (s *TypedStore[T]) Kind() string {
	return s.kind
}

// Get retrieves and unmarshals the item for an ID, or nil if not found.
func (s *TypedStore[T]) Get(id string) (*Item[T], error) {
	rec, err := s.store.Get(s.kind, id)
	if err != nil || rec == nil {
		return nil, err
	}
	item, err := decode[T](*rec)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Set marshals and stores the state for an ID.
func (s *TypedStore[T]) Set(id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return s.store.Set(s.kind, id, payload)
}

// Delete removes the state for an ID.
func (s *TypedStore[T]) Delete(id string) error {
	return s.store.Delete(s.kind, id)
}

// Clear removes all state for this kind.
func (s *TypedStore[T]) Clear() error {
	return s.store.Clear(s.kind)
}

// List decodes all entries for this kind, ordered by id.
func (s *TypedStore[T]) List() ([]Item[T], error) {
	records, err := s.store.List(s.kind)
	if err != nil {
		return nil, err
	}

	items := make([]Item[T], 0, len(records))
	for _, rec := range records {
		item, err := decode[T](rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decode[T any](rec Record) (Item[T], error) {
	item := Item[T]{ID: rec.ID, Version: rec.Version, UpdatedAt: rec.UpdatedAt}
	if err := json.Unmarshal(rec.Payload, &item.Value); err != nil {
		return item, fmt.Errorf("failed to unmarshal state for %s: %w", rec.ID, err)
	}
	return item, nil
}
