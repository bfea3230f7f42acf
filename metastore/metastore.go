// Package metastore stores, per cache key, the list of stored variants a
// response has produced under Vary negotiation. It never holds response
// bodies; those live in a paired entitystore keyed by digest.
package metastore

import (
	"context"
	"net/http"
	"time"
)

// Variant is one stored negotiated response for a cache key: the request
// header snapshot used for Vary matching, the stored response's own
// headers and status, and the digest of its body in the entitystore.
type Variant struct {
	RequestHeader http.Header
	Header        http.Header
	StatusCode    int
	EntityDigest  string
	StoredAt      time.Time
}

// Entry is everything stored under one cache key: the set of variants
// negotiated so far, most-recently-stored first.
type Entry struct {
	Variants []Variant
}

// Store persists Entry values by cache key. Implementations must be safe
// for concurrent use.
type Store interface {
	// Lookup returns the Entry for key, or ok=false if nothing is stored.
	Lookup(ctx context.Context, key string) (entry *Entry, ok bool, err error)

	// Store replaces the Entry for key. Callers read-modify-write via
	// Lookup to add or supersede a Variant.
	Store(ctx context.Context, key string, entry *Entry) error

	// Invalidate removes the Entry for key, per spec.md's non-GET
	// invalidation behavior. It is not an error if key is absent.
	Invalidate(ctx context.Context, key string) error

	// Purge is an operator-triggered removal, semantically identical to
	// Invalidate but recorded as a distinct trace/metrics event.
	Purge(ctx context.Context, key string) error
}

// PutVariant puts v first in the Entry stored under key and removes any
// existing variant with an identical RequestHeader snapshot, so a
// revalidated variant replaces rather than duplicates. When an existing variant is
// displaced, its EntityDigest is returned so the caller can drop the
// entitystore reference it held.
func PutVariant(ctx context.Context, s Store, key string, v Variant) (displacedDigest string, err error) {
	entry, ok, err := s.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok || entry == nil {
		entry = &Entry{}
	}

	for i := range entry.Variants {
		if sameVaryRequest(entry.Variants[i].RequestHeader, v.RequestHeader) {
			displacedDigest = entry.Variants[i].EntityDigest
			entry.Variants = append(entry.Variants[:i:i], entry.Variants[i+1:]...)
			break
		}
	}
	entry.Variants = append([]Variant{v}, entry.Variants...)

	if err := s.Store(ctx, key, entry); err != nil {
		return "", err
	}
	return displacedDigest, nil
}

func sameVaryRequest(a, b http.Header) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}
