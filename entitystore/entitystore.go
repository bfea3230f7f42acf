// Package entitystore holds response bodies, addressed by the SHA-1
// digest of their content (spec.md §3/§4.4), so identical bodies served
// under different variants are stored once.
package entitystore

import (
	"context"
	"crypto/sha1" //nolint:gosec // content addressing, not a security boundary
	"encoding/hex"
)

// Digest is the hex-encoded SHA-1 of a body.
type Digest string

// NewDigest computes the Digest for body.
func NewDigest(body []byte) Digest {
	sum := sha1.Sum(body) //nolint:gosec
	return Digest(hex.EncodeToString(sum[:]))
}

// Store persists response bodies by Digest. Implementations must be safe
// for concurrent use and must treat Write as idempotent: writing the
// same digest twice is a no-op success.
type Store interface {
	// Open returns the body for digest, or ok=false if absent.
	Open(ctx context.Context, digest Digest) (body []byte, ok bool, err error)

	// Write stores body under its own digest.
	Write(ctx context.Context, digest Digest, body []byte) error

	// Purge removes the body stored under digest, if any.
	Purge(ctx context.Context, digest Digest) error
}
