// Package memcached is a metastore.Store backed by gomemcache, grounded
// on the teacher's memcache package. Entries are gob-encoded.
package memcached

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/sandrolain/cachegate/metastore"
)

// Store is a metastore.Store using a memcache cluster.
type Store struct {
	client *memcache.Client
}

// New returns a Store using the given memcache server(s) with equal
// weight, matching memcache.New's own addressing rules.
func New(server ...string) *Store {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a Store using an already-built memcache client.
func NewWithClient(client *memcache.Client) *Store {
	return &Store{client: client}
}

func cacheKey(key string) string {
	return "cachegate:meta:" + key
}

func (s *Store) Lookup(_ context.Context, key string) (*metastore.Entry, bool, error) {
	item, err := s.client.Get(cacheKey(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("metastore/memcached: get %q: %w", key, err)
	}
	var entry metastore.Entry
	if err := gob.NewDecoder(bytes.NewReader(item.Value)).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("metastore/memcached: decode %q: %w", key, err)
	}
	return &entry, true, nil
}

func (s *Store) Store(_ context.Context, key string, entry *metastore.Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("metastore/memcached: encode %q: %w", key, err)
	}
	item := &memcache.Item{Key: cacheKey(key), Value: buf.Bytes()}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("metastore/memcached: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Invalidate(_ context.Context, key string) error {
	if err := s.client.Delete(cacheKey(key)); err != nil && err != memcache.ErrCacheMiss {
		return fmt.Errorf("metastore/memcached: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, key string) error {
	return s.Invalidate(ctx, key)
}

var _ metastore.Store = (*Store)(nil)
