package compliance

import (
	"context"
	"sync"

	"mercator-hq/sovereign/pkg/governance"
)

// CheckStore persists evaluated checks.
type CheckStore interface {
	Save(ctx context.Context, check *Check) error

	// Get returns the check or a governance.ErrNotFound error.
	Get(ctx context.Context, id string) (*Check, error)

	// List returns checks for tenantID (all tenants when empty), newest
	// first, capped at limit when limit is positive.
	List(ctx context.Context, tenantID string, limit int) ([]*Check, error)
}

// MemoryCheckStore keeps checks in memory.
type MemoryCheckStore struct {
	mu      sync.RWMutex
	byID    map[string]*Check
	ordered []*Check
}

// NewMemoryCheckStore creates an empty store.
func NewMemoryCheckStore() *MemoryCheckStore {
	return &MemoryCheckStore{byID: make(map[string]*Check)}
}

// Save stores a copy of check.
func (s *MemoryCheckStore) Save(ctx context.Context, check *Check) error {
	c := check.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[c.ID] = c
	s.ordered = append(s.ordered, c)
	return nil
}

// Get returns a copy of the check.
func (s *MemoryCheckStore) Get(ctx context.Context, id string) (*Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, governance.NotFound("compliance check", id)
	}
	return c.Clone(), nil
}

// List returns checks newest first.
func (s *MemoryCheckStore) List(ctx context.Context, tenantID string, limit int) ([]*Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Check, 0)
	for i := len(s.ordered) - 1; i >= 0; i-- {
		c := s.ordered[i]
		if tenantID != "" && c.TenantID != tenantID {
			continue
		}
		out = append(out, c.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
