// Package heap is an in-memory entitystore.Store, the default body
// store, grounded on the teacher's in-process MemoryCache.
package heap

import (
	"context"
	"sync"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store is a process-local entitystore.Store. The zero value is ready
// to use.
type Store struct {
	mu    sync.RWMutex
	blobs map[entitystore.Digest][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{blobs: make(map[entitystore.Digest][]byte)}
}

func (s *Store) Open(_ context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[digest]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *Store) Write(_ context.Context, digest entitystore.Digest, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		s.blobs = make(map[entitystore.Digest][]byte)
	}
	s.blobs[digest] = append([]byte(nil), body...)
	return nil
}

func (s *Store) Purge(_ context.Context, digest entitystore.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, digest)
	return nil
}

var _ entitystore.Store = (*Store)(nil)
