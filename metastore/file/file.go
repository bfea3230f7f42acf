// Package file is a metastore.Store backed by diskv, grounded on the
// teacher's diskcache package. Entries are gob-encoded before being
// written as files keyed by the SHA-256 of the cache key.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/peterbourgon/diskv"

	"github.com/sandrolain/cachegate/metastore"
)

// Store is a metastore.Store that persists Entry values as files under a
// base path.
type Store struct {
	d *diskv.Diskv
}

// New returns a Store rooted at basePath, creating it if necessary.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 64 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv returns a Store using a caller-constructed diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Store {
	return &Store{d: d}
}

func (s *Store) Lookup(_ context.Context, key string) (*metastore.Entry, bool, error) {
	raw, err := s.d.Read(filename(key))
	if err != nil {
		return nil, false, nil
	}
	var entry metastore.Entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("metastore/file: decode %q: %w", key, err)
	}
	return &entry, true, nil
}

func (s *Store) Store(_ context.Context, key string, entry *metastore.Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("metastore/file: encode %q: %w", key, err)
	}
	if err := s.d.WriteStream(filename(key), &buf, true); err != nil {
		return fmt.Errorf("metastore/file: write %q: %w", key, err)
	}
	return nil
}

func (s *Store) Invalidate(_ context.Context, key string) error {
	if err := s.d.Erase(filename(key)); err != nil {
		return nil //nolint:nilerr // missing file is not an error
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, key string) error {
	return s.Invalidate(ctx, key)
}

func filename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

var _ metastore.Store = (*Store)(nil)
