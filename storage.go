package cachegate

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/sandrolain/cachegate/entitystore"
	entityfile "github.com/sandrolain/cachegate/entitystore/file"
	entityheap "github.com/sandrolain/cachegate/entitystore/heap"
	"github.com/sandrolain/cachegate/metastore"
	metafile "github.com/sandrolain/cachegate/metastore/file"
	metaheap "github.com/sandrolain/cachegate/metastore/heap"
	"github.com/sandrolain/cachegate/wrapper/securecache"
)

// Storage pairs a metastore.Store (variant lists) with an
// entitystore.Store (response bodies), per spec.md §4.1's metastore/
// entitystore split.
type Storage struct {
	Meta   metastore.Store
	Entity entitystore.Store

	refMu sync.Mutex
	refs  map[entitystore.Digest]int
}

// NewStorage pairs an explicit metastore and entitystore.
func NewStorage(meta metastore.Store, entity entitystore.Store) *Storage {
	return &Storage{Meta: meta, Entity: entity}
}

// NewHeapStorage returns a Storage backed entirely by process memory,
// the default used when a Config names no MetastoreURI/EntitystoreURI.
func NewHeapStorage() *Storage {
	return &Storage{Meta: metaheap.New(), Entity: entityheap.New()}
}

var (
	defaultStorageOnce sync.Once
	defaultStorage     *Storage
)

// defaultStorageSingleton lazily builds the process-wide heap Storage
// used when a Handler's Config sets neither Storage nor any store URI
// (SPEC_FULL.md §9: the Rack::Cache-style module-level default becomes a
// lazily-initialized singleton rather than process-global mutable
// state).
func defaultStorageSingleton() *Storage {
	defaultStorageOnce.Do(func() {
		defaultStorage = NewHeapStorage()
	})
	return defaultStorage
}

// resolveStorage returns cfg.Storage, building one from
// MetastoreURI/EntitystoreURI if unset, falling back to the heap
// singleton if both are empty.
func resolveStorage(cfg *Config) (*Storage, error) {
	if cfg.Storage != nil {
		return cfg.Storage, nil
	}
	if cfg.MetastoreURI == "" && cfg.EntitystoreURI == "" {
		return defaultStorageSingleton(), nil
	}

	meta, err := resolveMetastore(cfg.MetastoreURI)
	if err != nil {
		return nil, err
	}
	entity, err := resolveEntitystore(cfg.EntitystoreURI)
	if err != nil {
		return nil, err
	}
	return &Storage{Meta: meta, Entity: entity}, nil
}

// resolveMetastore maps a URI scheme to a metastore.Store. Only schemes
// requiring no extra runtime configuration (heap, file) are resolved
// here; callers that need memcached/redis/leveldb construct a Storage
// directly with NewStorage and those packages' constructors, since
// dialing a cluster needs more than a URI can carry cleanly.
func resolveMetastore(uri string) (metastore.Store, error) {
	if uri == "" {
		return metaheap.New(), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("cachegate: invalid metastore uri %q: %w", uri, err)
	}
	switch u.Scheme {
	case "heap", "":
		return metaheap.New(), nil
	case "file":
		return metafile.New(u.Path), nil
	default:
		return nil, fmt.Errorf("cachegate: unsupported metastore scheme %q, construct a Storage directly", u.Scheme)
	}
}

// wrapEncryptedStorage wraps storage.Entity with wrapper/securecache so
// stored response bodies are encrypted at rest. The metastore (header
// and status metadata) is left unwrapped: it never holds response
// bodies, and a component inspecting a Vary negotiation doesn't need
// the payload itself encrypted twice.
func wrapEncryptedStorage(storage *Storage, passphrase string) (*Storage, error) {
	entity, err := securecache.New(storage.Entity, passphrase)
	if err != nil {
		return nil, err
	}
	return &Storage{Meta: storage.Meta, Entity: entity}, nil
}

// retainDigest records a new reference to digest, taken out whenever a
// metastore variant is stored pointing at it, so entitystore bodies
// shared by several variants or cache keys are purged only once nothing
// references them anymore.
func (s *Storage) retainDigest(digest entitystore.Digest) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	if s.refs == nil {
		s.refs = make(map[entitystore.Digest]int)
	}
	s.refs[digest]++
}

// releaseDigest drops one reference to digest, purging its body from the
// entitystore once the count reaches zero. A digest with no recorded
// reference (e.g. one written by a prior process instance) is purged
// immediately, since this in-process refcount cannot see references held
// elsewhere.
func (s *Storage) releaseDigest(ctx context.Context, digest entitystore.Digest) error {
	s.refMu.Lock()
	n := s.refs[digest]
	if n > 1 {
		s.refs[digest] = n - 1
		s.refMu.Unlock()
		return nil
	}
	delete(s.refs, digest)
	s.refMu.Unlock()
	return s.Entity.Purge(ctx, digest)
}

func resolveEntitystore(uri string) (entitystore.Store, error) {
	if uri == "" {
		return entityheap.New(), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("cachegate: invalid entitystore uri %q: %w", uri, err)
	}
	switch u.Scheme {
	case "heap", "":
		return entityheap.New(), nil
	case "file":
		return entityfile.New(u.Path), nil
	default:
		return nil, fmt.Errorf("cachegate: unsupported entitystore scheme %q, construct a Storage directly", u.Scheme)
	}
}
