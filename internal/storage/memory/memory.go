// Package memory provides an in-process implementation of storage.RecordStore.
// Data lives only as long as the process; it backs tests and throwaway runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/splitplus/internal/storage"
)

var _ storage.RecordStore = (*Store)(nil)

// Store keeps records in maps guarded by a mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[storage.Collection]map[string]storage.Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{collections: make(map[storage.Collection]map[string]storage.Record)}
}

func (s *Store) Get(_ context.Context, c storage.Collection, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[c][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", c, id, storage.ErrRecordNotFound)
	}
	return clone(rec), nil
}

func (s *Store) List(_ context.Context, c storage.Collection, filter storage.Filter) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*storage.Record
	for _, rec := range s.collections[c] {
		if matches(rec, filter) {
			records = append(records, clone(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (s *Store) Put(_ context.Context, c storage.Collection, rec *storage.Record) error {
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[c]
	if !ok {
		coll = make(map[string]storage.Record)
		s.collections[c] = coll
	}
	coll[rec.ID] = *clone(*rec)
	return nil
}

func (s *Store) Delete(_ context.Context, c storage.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[c], id)
	return nil
}

func (s *Store) DeleteWhere(_ context.Context, c storage.Collection, filter storage.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.collections[c] {
		if matches(rec, filter) {
			delete(s.collections[c], id)
		}
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func matches(rec storage.Record, filter storage.Filter) bool {
	return filter.GroupID == "" || rec.GroupID == filter.GroupID
}

// clone copies Data so callers cannot mutate stored bytes.
func clone(rec storage.Record) *storage.Record {
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec
}
