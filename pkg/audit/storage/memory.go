// Package storage provides audit.Storage backends: in-memory for tests and
// single-process use, SQLite for durable single-node deployments, and
// PostgreSQL for shared deployments.
package storage

import (
	"context"
	"sync"

	"mercator-hq/sovereign/pkg/audit"
)

const streamBuffer = 100

// MemoryStorage keeps entries in an append-only slice.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*audit.Entry
	seq     int64
}

// NewMemoryStorage creates an empty in-memory audit store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make([]*audit.Entry, 0, 64)}
}

// Append stores a copy of entry.
func (s *MemoryStorage) Append(ctx context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.Sequence = s.seq
	s.entries = append(s.entries, entry.Clone())
	return nil
}

// Query returns matching entries, newest first.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*audit.Entry, 0)
	skipped := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if !query.Matches(e) {
			continue
		}
		if skipped < query.Offset {
			skipped++
			continue
		}
		out = append(out, e.Clone())
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out, nil
}

// QueryStream streams matching entries, newest first.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Entry, <-chan error) {
	entries := make(chan *audit.Entry, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		defer close(errCh)

		results, err := s.Query(ctx, query)
		if err != nil {
			errCh <- err
			return
		}
		for _, e := range results {
			select {
			case entries <- e:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return entries, errCh
}

// Count returns the number of matching entries.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if query.Matches(e) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
