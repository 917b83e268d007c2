// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

// Store holds triage decisions in memory. Suitable for dev/testing and for
// deployments that rely on the CSV audit log alone.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]*triage.Decision // decision ID -> decision
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{decisions: make(map[string]*triage.Decision)}
}

// Get retrieves a decision by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Decision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

// Put stores a copy of the decision.
func (s *Store) Put(_ context.Context, d *triage.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.decisions[d.ID] = &cp
	return nil
}
