// Package heap is an in-memory metastore.Store backed by a guarded map.
// It is the default store and is grounded on the teacher's in-process
// MemoryCache, generalized from a flat byte-slice cache to an Entry
// store.
package heap

import (
	"context"
	"sync"

	"github.com/sandrolain/cachegate/metastore"
)

// Store is a process-local metastore.Store. The zero value is ready to
// use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*metastore.Entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*metastore.Entry)}
}

func (s *Store) Lookup(_ context.Context, key string) (*metastore.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := *e
	cp.Variants = append([]metastore.Variant(nil), e.Variants...)
	return &cp, true, nil
}

func (s *Store) Store(_ context.Context, key string, entry *metastore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]*metastore.Entry)
	}
	s.entries[key] = entry
	return nil
}

func (s *Store) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) Purge(ctx context.Context, key string) error {
	return s.Invalidate(ctx, key)
}

var _ metastore.Store = (*Store)(nil)
