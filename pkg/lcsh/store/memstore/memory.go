package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu    sync.RWMutex
	terms map[string]store.Term
}

// New creates a new in-memory store, optionally seeded with terms.
func New(terms ...store.Term) *Store {
	s := &Store{
		terms: make(map[string]store.Term, len(terms)),
	}
	for _, t := range terms {
		if t.ID == "" {
			continue
		}
		s.terms[t.ID] = t.Clone()
	}
	return s
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertTerm inserts or replaces a term, keyed by ID.
func (s *Store) UpsertTerm(ctx context.Context, t store.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		return nil
	}
	s.terms[t.ID] = t.Clone()
	return nil
}

// FetchTermsByIDs returns the stored terms among ids, in request order.
func (s *Store) FetchTermsByIDs(ctx context.Context, ids []string) ([]store.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Term
	for _, id := range store.UniqueIDs(ids) {
		if t, ok := s.terms[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// GetTerm returns a term by ID.
func (s *Store) GetTerm(ctx context.Context, id string) (store.Term, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.terms[id]; ok {
		return t.Clone(), true, nil
	}
	return store.Term{}, false, nil
}

// SearchTerms returns terms matching the query, ordered by ID.
func (s *Store) SearchTerms(ctx context.Context, q store.Query) ([]store.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.terms))
	for id := range s.terms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []store.Term
	for _, id := range ids {
		t := s.terms[id]
		if !q.Matches(t) {
			continue
		}
		out = append(out, t.Clone())
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored terms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.terms)
}
