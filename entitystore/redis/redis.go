// Package redis is an entitystore.Store backed by go-redis, grounded on
// the key-prefixing and stale-marker conventions of the teacher's redis
// package, ported to the go-redis/v9 client actually declared in the
// teacher's module.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store is an entitystore.Store using a Redis server.
type Store struct {
	client *redis.Client
	prefix string
}

// New returns a Store using a freshly dialed client.
func New(opt *redis.Options) *Store {
	return NewWithClient(redis.NewClient(opt))
}

// NewWithClient returns a Store using an already-built client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "cachegate:entity:"}
}

func (s *Store) key(digest entitystore.Digest) string {
	return s.prefix + string(digest)
}

func (s *Store) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	body, err := s.client.Get(ctx, s.key(digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("entitystore/redis: get %q: %w", digest, err)
	}
	return body, true, nil
}

func (s *Store) Write(ctx context.Context, digest entitystore.Digest, body []byte) error {
	if err := s.client.Set(ctx, s.key(digest), body, 0).Err(); err != nil {
		return fmt.Errorf("entitystore/redis: set %q: %w", digest, err)
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, digest entitystore.Digest) error {
	if err := s.client.Del(ctx, s.key(digest)).Err(); err != nil {
		return fmt.Errorf("entitystore/redis: del %q: %w", digest, err)
	}
	return nil
}

var _ entitystore.Store = (*Store)(nil)
