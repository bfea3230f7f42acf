package cachegate

import (
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/sandrolain/cachegate/metrics"
)

// Config is the Engine's typed configuration surface, read-mostly after
// construction (see SPEC_FULL.md §5 concurrency model). It implements
// spec.md §4.1's Options table plus the SPEC_FULL.md expansion.
type Config struct {
	// CacheKey derives a cache key from a Request. Defaults to DefaultKey.
	CacheKey KeyFunc

	// Storage, when set, is used as is and the URIs below are ignored.
	// When nil, a Storage is built from MetastoreURI/EntitystoreURI; only
	// when both URIs are empty is the process singleton heap Storage used
	// (SPEC_FULL.md §9). DefaultConfig sets both URIs to "heap:/", so each
	// Handler built from it gets its own heap stores.
	Storage *Storage

	// MetastoreURI and EntitystoreURI name the backing stores, e.g.
	// "heap:/" or "file:/var/cache/meta". Only the heap and file schemes
	// are resolved; any other scheme (memcached included) makes New return
	// an error, and such stores are passed in through Storage instead.
	MetastoreURI   string
	EntitystoreURI string

	// DefaultTTL is the number of seconds assigned to responses that lack
	// freshness info entirely (spec.md §4.1). Zero disables the fallback.
	DefaultTTL int64

	// PrivateHeaders lists request headers whose presence makes a request
	// private (spec.md §3). With IsPublicCache set, the response to a
	// private request is stored only when it carries public,
	// must-revalidate or s-maxage. The response is not marked private, and
	// without IsPublicCache the list has no effect. Defaults to
	// []string{"Authorization", "Cookie"}.
	PrivateHeaders []string

	// AllowReload honors Cache-Control: no-cache on the request by forcing
	// a reload (spec.md §4.2's "reload" trace event).
	AllowReload bool

	// AllowRevalidate honors Cache-Control: max-age=0 (or less than the
	// entry's age) on the request by forcing revalidation.
	AllowRevalidate bool

	// Verbose emits one "cache: [METHOD path] event1, event2, ..." log
	// line per request (spec.md §4.2).
	Verbose bool

	// IsPublicCache switches the engine into shared/public cache mode: it
	// must not store private responses, and Authorization requests are
	// only cached when the response opts in via public/must-revalidate/
	// s-maxage (RFC 9111 §3.5).
	IsPublicCache bool

	// SkipServerErrorsFromCache forces a re-fetch instead of serving a
	// fresh 5xx entry from the metastore.
	SkipServerErrorsFromCache bool

	// EnableStaleWhileRevalidate honors Cache-Control:
	// stale-while-revalidate=N on stored responses.
	EnableStaleWhileRevalidate bool

	// AsyncRevalidateTimeout bounds the background revalidation triggered
	// by stale-while-revalidate. Zero means no timeout.
	AsyncRevalidateTimeout time.Duration

	// EnableStaleIfError honors Cache-Control: stale-if-error on the
	// response or request when fetch/validate fails.
	EnableStaleIfError bool

	// UnderstoodStatusCodes overrides the must-understand extension's
	// default understood-status-code set (RFC 9111 §5.2.2.3).
	UnderstoodStatusCodes map[int]bool

	// DisableWarningHeader suppresses the RFC 7234 §5.5 Warning header.
	DisableWarningHeader bool

	// CacheKeyHeaders folds extra request headers into the cache key,
	// independent of the response's Vary header.
	CacheKeyHeaders []string

	// EncryptionPassphrase, if set, wraps the configured Storage's
	// entitystore with wrapper/securecache so response bodies are
	// AES-256-GCM encrypted at rest. Metastore entries (headers, status,
	// Vary snapshots) are not encrypted.
	EncryptionPassphrase string

	// Resilience optionally wraps the backend call in fetch/validate with
	// a failsafe-go retry policy and/or circuit breaker.
	Resilience *ResilienceConfig

	// Metrics records cache operation counts/durations. Defaults to
	// metrics.NoOpCollector.
	Metrics metrics.Collector
}

// ResilienceConfig names the failsafe-go policies the Engine wraps backend
// calls with, grounded on the teacher's resilience.go.
type ResilienceConfig struct {
	RetryPolicy    retrypolicy.RetryPolicy[*Response]
	CircuitBreaker circuitbreaker.CircuitBreaker[*Response]
}

// DefaultConfig returns a Config with the defaults named in spec.md §4.1.
func DefaultConfig() *Config {
	return &Config{
		CacheKey:                   DefaultKey,
		MetastoreURI:               "heap:/",
		EntitystoreURI:             "heap:/",
		DefaultTTL:                 0,
		PrivateHeaders:             append([]string(nil), defaultPrivateHeaders...),
		AllowReload:                false,
		AllowRevalidate:            false,
		Verbose:                    true,
		EnableStaleWhileRevalidate: true,
		EnableStaleIfError:         true,
		UnderstoodStatusCodes:      defaultUnderstoodStatusCodes,
		Metrics:                    metrics.DefaultCollector,
	}
}

func (c *Config) privateHeaders() []string {
	if len(c.PrivateHeaders) == 0 {
		return defaultPrivateHeaders
	}
	return c.PrivateHeaders
}

func (c *Config) keyFunc() KeyFunc {
	if c.CacheKey == nil {
		return DefaultKey
	}
	return c.CacheKey
}

func (c *Config) metricsCollector() metrics.Collector {
	if c.Metrics == nil {
		return metrics.DefaultCollector
	}
	return c.Metrics
}

func (c *Config) understoodStatusCodes() map[int]bool {
	if c.UnderstoodStatusCodes == nil {
		return defaultUnderstoodStatusCodes
	}
	return c.UnderstoodStatusCodes
}
