// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/linnemanlabs/oasis/internal/triage"
)

// Store holds triage results in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	results map[string]*triage.Result // triage ID -> result
	order   []string                  // IDs in insertion order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results: make(map[string]*triage.Result),
	}
}

// Get retrieves a triage result by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	return clone(r), true, nil
}

// Put stores a copy of the triage result.
func (s *Store) Put(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.results[r.ID] = clone(r)
	return nil
}

// List returns up to limit results, newest first. ULIDs sort by creation
// time, so IDs are compared directly.
func (s *Store) List(_ context.Context, limit int) ([]*triage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Clone(s.order)
	slices.SortFunc(ids, func(a, b string) int { return strings.Compare(b, a) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*triage.Result, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.results[id]))
	}
	return out, nil
}

// Len returns the number of stored results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func clone(r *triage.Result) *triage.Result {
	cp := *r
	cp.Outcome.Recommendations = slices.Clone(r.Outcome.Recommendations)
	if r.Outcome.Prompt != nil {
		p := *r.Outcome.Prompt
		cp.Outcome.Prompt = &p
	}
	return &cp
}
