// Package cache wraps a store.Store with an LRU read-through cache of term
// records. Term records change rarely (the LCSH dump is reloaded wholesale),
// so the cache never expires entries on its own; writes through the wrapper
// invalidate the affected identifier.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/lcshtree/pkg/lcsh/store"
)

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 1024

// Store is a caching decorator over another store.Store.
type Store struct {
	inner store.Store
	terms *lru.Cache[string, store.Term]
}

// New wraps inner with an LRU cache holding up to size terms.
func New(inner store.Store, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, store.Term](size)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, terms: c}, nil
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	s.terms.Purge()
	return s.inner.Close()
}

// FetchTermsByIDs serves cached terms and fetches all misses in one call to
// the wrapped store. Results keep request order.
func (s *Store) FetchTermsByIDs(ctx context.Context, ids []string) ([]store.Term, error) {
	unique := store.UniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	found := make(map[string]store.Term, len(unique))
	var misses []string
	for _, id := range unique {
		if t, ok := s.terms.Get(id); ok {
			found[id] = t.Clone()
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		fetched, err := s.inner.FetchTermsByIDs(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, t := range fetched {
			s.terms.Add(t.ID, t.Clone())
			found[t.ID] = t
		}
	}

	out := make([]store.Term, 0, len(found))
	for _, id := range unique {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTerm returns a single term, from cache when possible.
func (s *Store) GetTerm(ctx context.Context, id string) (store.Term, bool, error) {
	terms, err := s.FetchTermsByIDs(ctx, []string{id})
	if err != nil {
		return store.Term{}, false, err
	}
	if len(terms) == 0 {
		return store.Term{}, false, nil
	}
	return terms[0], true, nil
}

// SearchTerms always goes to the wrapped store; the matched records warm the cache.
func (s *Store) SearchTerms(ctx context.Context, q store.Query) ([]store.Term, error) {
	terms, err := s.inner.SearchTerms(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, t := range terms {
		s.terms.Add(t.ID, t.Clone())
	}
	return terms, nil
}

// UpsertTerm writes through and drops any cached copy.
func (s *Store) UpsertTerm(ctx context.Context, t store.Term) error {
	if err := s.inner.UpsertTerm(ctx, t); err != nil {
		return err
	}
	s.terms.Remove(t.ID)
	return nil
}

// Len returns the number of cached terms.
func (s *Store) Len() int { return s.terms.Len() }
