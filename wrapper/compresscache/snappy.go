package compresscache

import (
	"context"
	"fmt"

	"github.com/golang/snappy"

	"github.com/sandrolain/cachegate/entitystore"
)

// SnappyStore wraps an entitystore.Store with snappy compression.
type SnappyStore struct {
	*baseCompressStore
}

// SnappyConfig configures a SnappyStore.
type SnappyConfig struct {
	Underlying entitystore.Store
}

// NewSnappy wraps config.Underlying with snappy compression.
func NewSnappy(config SnappyConfig) (*SnappyStore, error) {
	if config.Underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying store cannot be nil")
	}
	return &SnappyStore{
		baseCompressStore: newBaseCompressStore(config.Underlying, Snappy),
	}, nil
}

func (c *SnappyStore) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyStore) decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return decompressed, nil
}

func (c *SnappyStore) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	return c.open(ctx, digest, c.decompress)
}

func (c *SnappyStore) Write(ctx context.Context, digest entitystore.Digest, value []byte) error {
	return c.write(ctx, digest, value, c.compress)
}

func (c *SnappyStore) Purge(ctx context.Context, digest entitystore.Digest) error {
	return c.purge(ctx, digest)
}

// Stats returns the running compression statistics for this store.
func (c *SnappyStore) Stats() Stats {
	return c.stats()
}

var _ entitystore.Store = (*SnappyStore)(nil)
