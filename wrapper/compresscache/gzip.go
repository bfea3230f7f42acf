package compresscache

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/sandrolain/cachegate/entitystore"
)

// GzipStore wraps an entitystore.Store with gzip compression.
type GzipStore struct {
	*baseCompressStore
	level int
}

// GzipConfig configures a GzipStore.
type GzipConfig struct {
	Underlying entitystore.Store
	// Level is the compression level (gzip.HuffmanOnly..gzip.BestCompression).
	// Default: gzip.DefaultCompression.
	Level int
}

// NewGzip wraps config.Underlying with gzip compression.
func NewGzip(config GzipConfig) (*GzipStore, error) {
	if config.Underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying store cannot be nil")
	}
	if config.Level == 0 {
		config.Level = gzip.DefaultCompression
	}
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", config.Level)
	}

	return &GzipStore{
		baseCompressStore: newBaseCompressStore(config.Underlying, Gzip),
		level:             config.Level,
	}, nil
}

func (c *GzipStore) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipStore) decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return decompressed, nil
}

func (c *GzipStore) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	return c.open(ctx, digest, c.decompress)
}

func (c *GzipStore) Write(ctx context.Context, digest entitystore.Digest, value []byte) error {
	return c.write(ctx, digest, value, c.compress)
}

func (c *GzipStore) Purge(ctx context.Context, digest entitystore.Digest) error {
	return c.purge(ctx, digest)
}

// Stats returns the running compression statistics for this store.
func (c *GzipStore) Stats() Stats {
	return c.stats()
}

var _ entitystore.Store = (*GzipStore)(nil)
