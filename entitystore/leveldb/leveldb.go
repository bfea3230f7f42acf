// Package leveldb is an entitystore.Store backed by goleveldb, grounded
// on the teacher's leveldbcache package.
package leveldb

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store is an entitystore.Store backed by an on-disk LevelDB database.
type Store struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database at path.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("entitystore/leveldb: open %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB returns a Store using an already-open database.
func NewWithDB(db *leveldb.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Open(_ context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	body, err := s.db.Get([]byte(digest), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("entitystore/leveldb: get %q: %w", digest, err)
	}
	return body, true, nil
}

func (s *Store) Write(_ context.Context, digest entitystore.Digest, body []byte) error {
	if err := s.db.Put([]byte(digest), body, nil); err != nil {
		return fmt.Errorf("entitystore/leveldb: put %q: %w", digest, err)
	}
	return nil
}

func (s *Store) Purge(_ context.Context, digest entitystore.Digest) error {
	if err := s.db.Delete([]byte(digest), nil); err != nil {
		return fmt.Errorf("entitystore/leveldb: delete %q: %w", digest, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ entitystore.Store = (*Store)(nil)
