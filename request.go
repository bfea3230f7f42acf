package cachegate

import (
	"net/http"
	"strconv"
	"strings"
)

// Request is an immutable snapshot of an incoming HTTP request, carrying
// just what the Engine needs to classify and key it. It never aliases the
// original *http.Request's mutable state beyond the headers it was built
// from, so it is safe to pass across goroutines (e.g. async revalidation).
type Request struct {
	Method string
	URL    string // req.URL.String(), full path + query
	Header http.Header
	cc     directives
}

// NewRequest builds a Request snapshot from an *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Method: r.Method,
		URL:    r.URL.String(),
		Header: r.Header.Clone(),
		cc:     parseCacheControl(r.Header),
	}
}

// Safe reports whether the request method is cacheable (GET or HEAD).
func (r *Request) Safe() bool {
	return r.Method == methodGet || r.Method == methodHead
}

// Purge reports whether this is a PURGE request (a cache extension method).
func (r *Request) Purge() bool {
	return r.Method == methodPurge
}

// HasExpect reports whether the request carries an Expect header, which
// forces the engine to pass the request straight through (spec.md §4.2).
func (r *Request) HasExpect() bool {
	return r.Header.Get(headerExpect) != ""
}

// NoCache reports Cache-Control: no-cache on the request, or the legacy
// Pragma: no-cache equivalent when no Cache-Control header is present at
// all (RFC 7234 §5.4).
func (r *Request) NoCache() bool {
	if r.cc.has(directiveNoCache) {
		return true
	}
	if len(r.cc) == 0 {
		return strings.EqualFold(r.Header.Get(headerPragma), pragmaNoCache)
	}
	return false
}

// MaxAge returns the request's Cache-Control: max-age=N directive, if any.
func (r *Request) MaxAge() (int64, bool) {
	return r.cc.seconds(directiveMaxAge)
}

// MaxStale returns the request's Cache-Control: max-stale directive value.
// unlimited is true when max-stale carries no value (accept any staleness).
func (r *Request) MaxStale() (seconds int64, unlimited bool, present bool) {
	raw, ok := r.cc[directiveMaxStale]
	if !ok {
		return 0, false, false
	}
	if raw == "" {
		return 0, true, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, true, true
	}
	return n, false, true
}

// MinFresh returns the request's Cache-Control: min-fresh=N directive.
func (r *Request) MinFresh() (int64, bool) {
	return r.cc.seconds(directiveMinFresh)
}

// OnlyIfCached reports Cache-Control: only-if-cached on the request.
func (r *Request) OnlyIfCached() bool {
	return r.cc.has(directiveOnlyIfCached)
}

// StaleIfError returns the request's stale-if-error directive, mirroring
// Response.StaleIfError's (seconds, unlimited, present) shape.
func (r *Request) StaleIfError() (seconds int64, unlimited bool, present bool) {
	raw, ok := r.cc[directiveStaleIfError]
	if !ok {
		return 0, false, false
	}
	if raw == "" {
		return 0, true, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, true, true
	}
	return n, false, true
}

// Private reports whether the request carries any header in privateHeaders
// (case-insensitive), marking it as a request that must not be served a
// shared/public cache entry unless the response opts in explicitly.
func (r *Request) Private(privateHeaders []string) bool {
	for _, h := range privateHeaders {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}
