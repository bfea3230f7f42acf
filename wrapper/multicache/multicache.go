// Package multicache provides a multi-tiered entitystore.Store implementation
// that cascades through several backends with automatic read-through
// promotion. This enables caching strategies with different performance and
// persistence characteristics at each tier. Adapted from the teacher's
// multicache wrapper (originally built over the flat httpcache.Cache
// interface) to the content-addressed entitystore.Store interface: bodies
// are what benefit from tiering, since the metastore's header/Vary lookups
// are already cheap in-process operations.
package multicache

import (
	"context"

	"github.com/sandrolain/cachegate/entitystore"
)

// Store implements a multi-tiered caching strategy where tiers are ordered
// from fastest/smallest (first) to slowest/largest (last). On reads, it
// searches each tier in order and promotes found bodies to faster tiers. On
// writes, it stores to all tiers, so hot data migrates to faster tiers while
// persistence is kept in slower ones.
//
// Example use case:
//   - Tier 1: heap (fast, small, volatile)
//   - Tier 2: file (medium speed, larger, persistent)
//   - Tier 3: redis (shared across processes, network-bound)
type Store struct {
	tiers []entitystore.Store
}

// New creates a Store with the specified tiers, ordered from
// fastest/smallest to slowest/largest. At least one tier must be provided,
// and all tiers must be non-nil and unique.
//
// Returns nil if no tiers are provided, any tier is nil, or a duplicate
// tier is detected.
func New(tiers ...entitystore.Store) *Store {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[entitystore.Store]bool)
	for _, tier := range tiers {
		if tier == nil {
			return nil
		}
		if seen[tier] {
			return nil
		}
		seen[tier] = true
	}

	return &Store{tiers: tiers}
}

// Open searches each tier in order, starting with the fastest. When a body
// is found in a slower tier, it is promoted (written) to all faster tiers
// for subsequent quick access.
func (c *Store) Open(ctx context.Context, digest entitystore.Digest) ([]byte, bool, error) {
	for i, tier := range c.tiers {
		body, ok, err := tier.Open(ctx, digest)
		if err != nil {
			return nil, false, err
		}
		if ok {
			_ = c.promoteToFasterTiers(ctx, digest, body, i) //nolint:errcheck // promotion is best-effort
			return body, true, nil
		}
	}

	return nil, false, nil
}

// Write stores body in every tier, since a digest is content-addressed and
// therefore identical regardless of which tier writes it.
func (c *Store) Write(ctx context.Context, digest entitystore.Digest, body []byte) error {
	for _, tier := range c.tiers {
		if err := tier.Write(ctx, digest, body); err != nil {
			return err
		}
	}
	return nil
}

// Purge removes the digest from every tier.
func (c *Store) Purge(ctx context.Context, digest entitystore.Digest) error {
	for _, tier := range c.tiers {
		if err := tier.Purge(ctx, digest); err != nil {
			return err
		}
	}
	return nil
}

func (c *Store) promoteToFasterTiers(ctx context.Context, digest entitystore.Digest, body []byte, foundAtTier int) error {
	for i := 0; i < foundAtTier; i++ {
		if err := c.tiers[i].Write(ctx, digest, body); err != nil {
			return err
		}
	}
	return nil
}

var _ entitystore.Store = (*Store)(nil)
