// Package compresscache wraps an entitystore.Store so response bodies are
// compressed before they reach the underlying backend, trading backend I/O
// and storage footprint for CPU at store/open time. Adapted from the
// teacher's compresscache wrapper (originally built over the flat
// httpcache.Cache interface) to the content-addressed entitystore.Store
// interface: bodies are what benefit from compression, not the metastore's
// header/Vary metadata, so only entitystore.Store gets a compressing
// wrapper.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sandrolain/cachegate/entitystore"
)

// Algorithm identifies a compression algorithm.
type Algorithm int

const (
	// Gzip uses compress/gzip (good balance of ratio and speed).
	Gzip Algorithm = iota
	// Brotli uses andybalholm/brotli (best ratio, slower).
	Brotli
	// Snappy uses golang/snappy (fastest, lowest ratio).
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds running compression statistics for a wrapped store.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// baseCompressStore provides the marker-byte framing shared by every
// algorithm-specific wrapper: the first byte of the stored value names the
// algorithm it was compressed with (0 meaning "stored uncompressed"), so a
// store written by one algorithm's wrapper can still be read back correctly
// even after the wrapper is reconfigured to a different algorithm.
type baseCompressStore struct {
	underlying entitystore.Store
	algorithm  Algorithm

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBaseCompressStore(underlying entitystore.Store, algorithm Algorithm) *baseCompressStore {
	return &baseCompressStore{underlying: underlying, algorithm: algorithm}
}

func (c *baseCompressStore) open(ctx context.Context, digest entitystore.Digest, decompressFn decompressFunc) ([]byte, bool, error) {
	data, ok, err := c.underlying.Open(ctx, digest)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(data) < 1 {
		return data, true, nil
	}

	marker := data[0]
	if marker == 0 {
		return data[1:], true, nil
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := c.decompressWithAlgorithm(data[1:], storedAlgo, decompressFn)
	if err != nil {
		return nil, false, fmt.Errorf("compresscache: decompress %q: %w", digest, err)
	}
	return decompressed, true, nil
}

// decompressWithAlgorithm decompresses with decompressFn when the stored
// marker matches this wrapper's own algorithm, otherwise falls back to
// whichever decompressor the marker names, so switching a deployment's
// configured algorithm doesn't strand previously-written entries.
func (c *baseCompressStore) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	return decompressAny(data, algorithm)
}

func decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return (&GzipStore{}).decompress(data)
	case Brotli:
		return (&BrotliStore{}).decompress(data)
	case Snappy:
		return (&SnappyStore{}).decompress(data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %v", algorithm)
	}
}

func (c *baseCompressStore) write(ctx context.Context, digest entitystore.Digest, value []byte, compressFn compressFunc) error {
	compressed, err := compressFn(value)
	if err != nil {
		data := make([]byte, len(value)+1)
		data[0] = 0
		copy(data[1:], value)
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(value)))
		return c.underlying.Write(ctx, digest, data)
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(c.algorithm + 1)
	copy(data[1:], compressed)

	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(value)))
	return c.underlying.Write(ctx, digest, data)
}

func (c *baseCompressStore) purge(ctx context.Context, digest entitystore.Digest) error {
	return c.underlying.Purge(ctx, digest)
}

func (c *baseCompressStore) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
