package compresscache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/sandrolain/cachegate/entitystore"
)

// BrotliStore wraps an entitystore.Store with brotli compression.
type BrotliStore struct {
	*baseCompressStore
	level int
}

// BrotliConfig configures a BrotliStore.
type BrotliConfig struct {
	Underlying entitystore.Store
	// Level is the compression level (0-11). Default: 6.
	Level int
}

// NewBrotli wraps config.Underlying with brotli compression.
func NewBrotli(config BrotliConfig) (*BrotliStore, error) {
	if config.Underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying store cannot be nil")
	}
	if config.Level == 0 {
		config.Level = 6
	}
	if config.Level < 0 || config.Level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", config.Level)
	}

	return &BrotliStore{
		baseCompressStore: newBaseCompressStore(config.Underlying, Brotli),
		level:             config.Level,
	}, nil
}

func (c *BrotliStore) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *BrotliStore) decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read: %w", err)
	}
	return decompressed, nil
}

func (c *BrotliStore) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	return c.open(ctx, digest, c.decompress)
}

func (c *BrotliStore) Write(ctx context.Context, digest entitystore.Digest, value []byte) error {
	return c.write(ctx, digest, value, c.compress)
}

func (c *BrotliStore) Purge(ctx context.Context, digest entitystore.Digest) error {
	return c.purge(ctx, digest)
}

// Stats returns the running compression statistics for this store.
func (c *BrotliStore) Stats() Stats {
	return c.stats()
}

var _ entitystore.Store = (*BrotliStore)(nil)
