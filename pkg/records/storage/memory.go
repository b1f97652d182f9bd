// Package storage provides records.Storage backends: an in-memory map for
// tests and single-process use, and SQLite for durable single-node
// deployments.
package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/records"
)

// MemoryStorage keeps records in a map guarded by a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*records.DataRecord
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*records.DataRecord)}
}

// Put inserts a copy of record.
func (s *MemoryStorage) Put(ctx context.Context, record *records.DataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return records.ErrDuplicate(record.ID)
	}
	s.records[record.ID] = record.Clone()
	return nil
}

// Get returns a copy of the record.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*records.DataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, governance.NotFound("record", id)
	}
	return r.Clone(), nil
}

// Delete removes the record.
func (s *MemoryStorage) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// Scan returns matching records ordered by creation time, then ID.
func (s *MemoryStorage) Scan(ctx context.Context, filter records.Filter) ([]*records.DataRecord, error) {
	s.mu.RLock()
	out := make([]*records.DataRecord, 0)
	for _, r := range s.records {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Count returns the number of records.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
