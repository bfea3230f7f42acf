// Package file is an entitystore.Store backed by diskv, grounded on the
// teacher's diskcache package. Because digests are already content
// hashes, the digest itself is used as the diskv key.
package file

import (
	"bytes"
	"context"
	"fmt"

	"github.com/peterbourgon/diskv"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store is an entitystore.Store that persists bodies as files under a
// base path.
type Store struct {
	d *diskv.Diskv
}

// New returns a Store rooted at basePath.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 256 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv returns a Store using a caller-constructed diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Store {
	return &Store{d: d}
}

func (s *Store) Open(_ context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	body, err := s.d.Read(string(digest))
	if err != nil {
		return nil, false, nil
	}
	return body, true, nil
}

func (s *Store) Write(_ context.Context, digest entitystore.Digest, body []byte) error {
	if err := s.d.WriteStream(string(digest), bytes.NewReader(body), true); err != nil {
		return fmt.Errorf("entitystore/file: write %q: %w", digest, err)
	}
	return nil
}

func (s *Store) Purge(_ context.Context, digest entitystore.Digest) error {
	if err := s.d.Erase(string(digest)); err != nil {
		return nil //nolint:nilerr // missing file is not an error
	}
	return nil
}

var _ entitystore.Store = (*Store)(nil)
