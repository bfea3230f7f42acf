// Package memcached is an entitystore.Store backed by gomemcache,
// grounded on the teacher's memcache package.
package memcached

import (
	"context"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store is an entitystore.Store using a memcache cluster.
type Store struct {
	client *memcache.Client
}

// New returns a Store using the given memcache server(s).
func New(server ...string) *Store {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a Store using an already-built memcache client.
func NewWithClient(client *memcache.Client) *Store {
	return &Store{client: client}
}

func cacheKey(digest entitystore.Digest) string {
	return "cachegate:entity:" + string(digest)
}

func (s *Store) Open(_ context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	item, err := s.client.Get(cacheKey(digest))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("entitystore/memcached: get %q: %w", digest, err)
	}
	return item.Value, true, nil
}

func (s *Store) Write(_ context.Context, digest entitystore.Digest, body []byte) error {
	item := &memcache.Item{Key: cacheKey(digest), Value: body}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("entitystore/memcached: set %q: %w", digest, err)
	}
	return nil
}

func (s *Store) Purge(_ context.Context, digest entitystore.Digest) error {
	if err := s.client.Delete(cacheKey(digest)); err != nil && err != memcache.ErrCacheMiss {
		return fmt.Errorf("entitystore/memcached: delete %q: %w", digest, err)
	}
	return nil
}

var _ entitystore.Store = (*Store)(nil)
