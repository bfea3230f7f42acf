package cachegate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandrolain/cachegate/entitystore"
	"github.com/sandrolain/cachegate/metastore"
)

// Handler is an http.Handler implementing RFC 2616 §13/RFC 9111 cache
// semantics in front of a backend http.Handler, generalized from the
// teacher's RoundTripper-based Transport to a server-side middleware
// shape (spec.md §6).
type Handler struct {
	backend http.Handler
	cfg     *Config
	storage *Storage
}

// New builds a Handler wrapping backend. A nil cfg uses DefaultConfig.
func New(backend http.Handler, cfg *Config) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	storage, err := resolveStorage(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.EncryptionPassphrase != "" {
		var err error
		storage, err = wrapEncryptedStorage(storage, cfg.EncryptionPassphrase)
		if err != nil {
			return nil, err
		}
	}

	return &Handler{backend: backend, cfg: cfg, storage: storage}, nil
}

// ServeHTTP implements http.Handler, routing the request through the
// pass/lookup/validate/fetch/store/invalidate/purge state machine named
// in spec.md §4.2.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := systemClock.Now()
	req := NewRequest(r)
	key := hashKey(foldHeadersIntoKey(h.cfg.keyFunc()(req), r.Header, h.cfg.CacheKeyHeaders))

	var trace Trace
	resp, err := h.route(r.Context(), r, req, key, &trace)
	if err != nil {
		http.Error(w, "cachegate: "+err.Error(), http.StatusBadGateway)
		return
	}

	applyConditionalDowngrade(r, req, resp, &trace)

	resp.SetAgeHeader()
	if req.Method == methodHead {
		resp.Body = nil
	}
	w.Header().Set(headerRackCacheTrace, trace.String())

	if werr := resp.WriteTo(w); werr != nil {
		GetLogger().Warn("cachegate: write response failed", "url", r.URL.String(), "error", werr)
	}

	last := TraceEvent("")
	if len(trace) > 0 {
		last = trace[len(trace)-1]
	}
	if h.cfg.Verbose {
		GetLogger().Info(fmt.Sprintf("cache: [%s %s] %s", req.Method, r.URL.Path, trace.String()))
	}
	h.cfg.metricsCollector().RecordRequest(req.Method, string(last), resp.StatusCode, systemClock.Now().Sub(start))
}

func (h *Handler) route(ctx context.Context, r *http.Request, req *Request, key string, trace *Trace) (*Response, error) {
	switch {
	case req.Purge():
		return h.purge(ctx, key, trace)
	case !req.Safe():
		return h.invalidateAndFetch(ctx, r, req, key, trace)
	case req.HasExpect():
		*trace = append(*trace, TracePass)
		return h.fetchWithResilience(r)
	default:
		return h.lookupOrFetch(ctx, r, req, key, trace)
	}
}

func (h *Handler) purge(ctx context.Context, key string, trace *Trace) (*Response, error) {
	h.releaseKeyEntities(ctx, key)
	if err := h.storage.Meta.Purge(ctx, key); err != nil {
		GetLogger().Warn("cachegate: purge failed", "key", key, "error", err)
	}
	*trace = append(*trace, TracePurge)
	now := systemClock.Now()
	return NewResponse(http.StatusOK, http.Header{}, nil, methodPurge, now, now), nil
}

// invalidateAndFetch handles every non-GET/HEAD/PURGE method: the
// backend is always called, and on a recognized mutating method the
// cache key and any same-origin Location/Content-Location targets are
// invalidated (RFC 9111 §4.4).
func (h *Handler) invalidateAndFetch(ctx context.Context, r *http.Request, req *Request, key string, trace *Trace) (*Response, error) {
	resp, err := h.fetchWithResilience(r)
	if err != nil {
		return nil, err
	}
	if isInvalidatingMethod(req.Method) {
		h.invalidateKey(ctx, key)
		h.invalidateLocationTargets(ctx, r, resp)
		*trace = append(*trace, TraceInvalidate)
	} else {
		*trace = append(*trace, TracePass)
	}
	return resp, nil
}

func (h *Handler) invalidateKey(ctx context.Context, key string) {
	h.releaseKeyEntities(ctx, key)
	if err := h.storage.Meta.Invalidate(ctx, key); err != nil {
		GetLogger().Warn("cachegate: invalidate failed", "key", key, "error", err)
	}
}

// releaseKeyEntities drops the entitystore references held by every
// variant currently stored under key, purging bodies that become
// unreferenced. Called before the metastore entry itself is removed, so
// stored content never outlives the last metastore entry pointing at it
// (SPEC_FULL.md §9: store backends must not leak blobs indefinitely).
func (h *Handler) releaseKeyEntities(ctx context.Context, key string) {
	entry, found, err := h.storage.Meta.Lookup(ctx, key)
	if err != nil || !found || entry == nil {
		return
	}
	for i := range entry.Variants {
		digest := entitystore.Digest(entry.Variants[i].EntityDigest)
		if digest == "" {
			continue
		}
		if err := h.storage.releaseDigest(ctx, digest); err != nil {
			GetLogger().Warn("cachegate: entitystore purge failed", "digest", digest, "error", err)
		}
	}
}

// invalidateLocationTargets invalidates the GET cache entries named by
// Location/Content-Location when they resolve to the same origin as the
// request, per SPEC_FULL.md §4.2's expansion of RFC 9111 §4.4.
func (h *Handler) invalidateLocationTargets(ctx context.Context, r *http.Request, resp *Response) {
	for _, name := range [...]string{headerLocation, headerContentLocation} {
		raw := resp.Header.Get(name)
		if raw == "" {
			continue
		}
		ref, err := url.Parse(raw)
		if err != nil {
			continue
		}
		target := r.URL.ResolveReference(ref)
		if target.Host != "" && target.Host != r.URL.Host {
			continue
		}
		targetReq := &Request{Method: methodGet, URL: target.String(), Header: http.Header{}}
		h.invalidateKey(ctx, hashKey(h.cfg.keyFunc()(targetReq)))
	}
}

// lookupOrFetch implements the GET/HEAD path: reload, metastore lookup,
// variant matching, freshness/stale-while-revalidate/stale-if-error
// decisions, falling through to fetchAndStore on miss.
func (h *Handler) lookupOrFetch(ctx context.Context, r *http.Request, req *Request, key string, trace *Trace) (*Response, error) {
	if req.NoCache() && h.cfg.AllowReload {
		*trace = append(*trace, TraceReload)
		return h.fetchAndStore(ctx, r, req, key, trace)
	}

	entry, found, err := h.storage.Meta.Lookup(ctx, key)
	if err != nil {
		GetLogger().Warn("cachegate: metastore lookup failed", "key", key, "error", err)
		found = false
	}

	var variant *metastore.Variant
	if found && entry != nil {
		for i := range entry.Variants {
			if matchesVary(entry.Variants[i].Header, entry.Variants[i].RequestHeader, req.Header) {
				variant = &entry.Variants[i]
				break
			}
		}
	}

	if variant == nil {
		*trace = append(*trace, TraceMiss)
		return h.fetchAndStore(ctx, r, req, key, trace)
	}

	resp, err := h.loadVariant(ctx, req, *variant)
	if err != nil {
		*trace = append(*trace, TraceMiss)
		return h.fetchAndStore(ctx, r, req, key, trace)
	}

	if h.cfg.SkipServerErrorsFromCache && resp.StatusCode >= http.StatusInternalServerError {
		*trace = append(*trace, TraceMiss)
		return h.fetchAndStore(ctx, r, req, key, trace)
	}

	// fresh_enough (spec.md §4.2): with allow_revalidate and a request
	// max-age=m, the entry is only fresh enough if m > 0 and m >= the
	// entry's own age, not its remaining TTL.
	if h.cfg.AllowRevalidate {
		if reqMaxAge, ok := req.MaxAge(); ok {
			age := int64(resp.Age().Seconds())
			if reqMaxAge <= 0 || reqMaxAge < age {
				*trace = append(*trace, TraceStale)
				return h.validate(ctx, r, req, key, resp, trace)
			}
		}
	}

	if resp.Fresh(h.cfg.IsPublicCache) {
		*trace = append(*trace, TraceFresh)
		return resp, nil
	}

	if h.cfg.EnableStaleWhileRevalidate {
		if window, ok := resp.StaleWhileRevalidate(); ok {
			if ttl, _ := resp.TTL(h.cfg.IsPublicCache); ttl+window > 0 {
				*trace = append(*trace, TraceStale, TraceSWR)
				if !h.cfg.DisableWarningHeader {
					addStaleWarning(resp)
				}
				h.asyncRevalidate(r, req, key)
				h.cfg.metricsCollector().RecordStaleServed("swr")
				return resp, nil
			}
		}
	}

	if maxStaleSecs, unlimited, present := req.MaxStale(); present {
		ttl, _ := resp.TTL(h.cfg.IsPublicCache)
		overrun := -ttl
		if unlimited || time.Duration(maxStaleSecs)*time.Second >= overrun {
			*trace = append(*trace, TraceFresh)
			if !h.cfg.DisableWarningHeader {
				addStaleWarning(resp)
			}
			return resp, nil
		}
	}

	if req.OnlyIfCached() {
		return gatewayTimeoutResponse(), nil
	}

	*trace = append(*trace, TraceStale)
	return h.validate(ctx, r, req, key, resp, trace)
}

// validate performs a conditional revalidation request against the
// backend and reconciles the result against the stored variant.
func (h *Handler) validate(ctx context.Context, r *http.Request, req *Request, key string, stored *Response, trace *Trace) (*Response, error) {
	condReq := cloneWithValidators(r, stored)
	newResp, err := h.fetchWithResilience(condReq)

	if err != nil || (newResp != nil && newResp.StatusCode >= http.StatusInternalServerError) {
		*trace = append(*trace, TraceInvalid)
		if h.handleStaleIfError(req, stored, trace) {
			h.cfg.metricsCollector().RecordStaleServed("stale-if-error")
			return stored, nil
		}
		if err != nil {
			return nil, err
		}
		h.storeResponse(ctx, key, req, newResp)
		return newResp, nil
	}

	if newResp.StatusCode == http.StatusNotModified {
		*trace = append(*trace, TraceValid, TraceNotModified)
		merged := mergeNotModified(stored, newResp)
		h.storeResponse(ctx, key, req, merged)
		return merged, nil
	}

	*trace = append(*trace, TraceInvalid)
	h.storeResponse(ctx, key, req, newResp)
	return newResp, nil
}

// handleStaleIfError reports whether a validate failure should be
// masked by serving stored, per the response's or request's
// stale-if-error window (RFC 5861).
func (h *Handler) handleStaleIfError(req *Request, stored *Response, trace *Trace) bool {
	if !h.cfg.EnableStaleIfError {
		return false
	}
	ttl, _ := stored.TTL(h.cfg.IsPublicCache)
	overrun := -ttl

	if secs, unlimited, present := stored.StaleIfError(); present && (unlimited || overrun <= secs) {
		*trace = append(*trace, TraceStaleIfError)
		if !h.cfg.DisableWarningHeader {
			addRevalidationFailedWarning(stored)
		}
		return true
	}
	if secs, unlimited, present := req.StaleIfError(); present && (unlimited || overrun <= time.Duration(secs)*time.Second) {
		*trace = append(*trace, TraceStaleIfError)
		if !h.cfg.DisableWarningHeader {
			addRevalidationFailedWarning(stored)
		}
		return true
	}
	return false
}

// fetchAndStore calls the backend and stores the result if cacheable.
func (h *Handler) fetchAndStore(ctx context.Context, r *http.Request, req *Request, key string, trace *Trace) (*Response, error) {
	if req.OnlyIfCached() {
		return gatewayTimeoutResponse(), nil
	}
	resp, err := h.fetchWithResilience(r)
	if err != nil {
		return nil, err
	}
	if h.storeResponse(ctx, key, req, resp) {
		*trace = append(*trace, TraceStore)
	}
	return resp, nil
}

// asyncRevalidate mirrors the teacher's Transport.asyncRevalidate: it
// replays the request in the background with Cache-Control: no-cache so
// the backend is always hit, then stores whatever comes back.
func (h *Handler) asyncRevalidate(r *http.Request, req *Request, key string) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if h.cfg.AsyncRevalidateTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.cfg.AsyncRevalidateTimeout)
	}

	clone := r.Clone(ctx)
	clone.Header.Set(headerCacheControl, directiveNoCache)

	go func() {
		if cancel != nil {
			defer cancel()
		}
		GetLogger().Debug("cachegate: starting async revalidation", "url", r.URL.String())
		resp, err := h.fetchWithResilience(clone)
		if err != nil {
			GetLogger().Warn("cachegate: async revalidation failed", "url", r.URL.String(), "error", err)
			return
		}
		h.storeResponse(ctx, key, req, resp)
	}()
}

// storeResponse writes resp to storage if it is cacheable, else clears
// any stored entry under key. Returns whether it stored.
func (h *Handler) storeResponse(ctx context.Context, key string, req *Request, resp *Response) bool {
	if !h.responseStorable(req, resp) {
		h.invalidateKey(ctx, key)
		return false
	}
	if _, ok := resp.freshnessLifetime(h.cfg.IsPublicCache); !ok && h.cfg.DefaultTTL > 0 {
		resp.SetTTL(h.cfg.DefaultTTL)
	}
	if !resp.Cacheable(h.cfg.IsPublicCache, h.cfg.understoodStatusCodes()) {
		h.invalidateKey(ctx, key)
		return false
	}

	digest := entitystore.NewDigest(resp.Body)
	if err := h.storage.Entity.Write(ctx, digest, resp.Body); err != nil {
		GetLogger().Warn("cachegate: entitystore write failed", "digest", digest, "error", err)
		return false
	}
	h.storage.retainDigest(digest)

	variant := metastore.Variant{
		RequestHeader: snapshotVaryHeaders(resp.Header, req.Header),
		Header:        resp.Header.Clone(),
		StatusCode:    resp.StatusCode,
		EntityDigest:  string(digest),
		StoredAt:      systemClock.Now(),
	}
	displaced, err := metastore.PutVariant(ctx, h.storage.Meta, key, variant)
	if err != nil {
		GetLogger().Warn("cachegate: metastore store failed", "key", key, "error", err)
		h.storage.releaseDigest(ctx, digest)
		return false
	}
	if displaced == string(digest) {
		// The displaced variant already held a reference to this body, so
		// the one just taken out for v is dropped again, keeping one.
		h.storage.refMu.Lock()
		if h.storage.refs[digest] > 1 {
			h.storage.refs[digest]--
		}
		h.storage.refMu.Unlock()
	} else if displaced != "" {
		if err := h.storage.releaseDigest(ctx, entitystore.Digest(displaced)); err != nil {
			GetLogger().Warn("cachegate: entitystore purge failed", "digest", displaced, "error", err)
		}
	}
	h.cfg.metricsCollector().RecordEntrySize("metastore", int64(len(resp.Body)))
	return true
}

// responseStorable applies the shared/public cache restriction on
// requests carrying private headers (RFC 9111 §3.5).
func (h *Handler) responseStorable(req *Request, resp *Response) bool {
	if resp.NoStore() {
		return false
	}
	if h.cfg.IsPublicCache && req.Private(h.cfg.privateHeaders()) {
		return resp.Public() || resp.MustRevalidate() || resp.cc.has(directiveSMaxAge)
	}
	return true
}

func (h *Handler) loadVariant(ctx context.Context, req *Request, v metastore.Variant) (*Response, error) {
	body, ok, err := h.storage.Entity.Open(ctx, entitystore.Digest(v.EntityDigest))
	if err != nil {
		return nil, fmt.Errorf("cachegate: open entity %s: %w", v.EntityDigest, err)
	}
	if !ok {
		return nil, fmt.Errorf("cachegate: entity %s missing", v.EntityDigest)
	}
	return NewResponse(v.StatusCode, v.Header.Clone(), body, req.Method, v.StoredAt, v.StoredAt), nil
}

// fetchWithResilience calls the backend, optionally wrapped in the
// configured retry policy and/or circuit breaker.
func (h *Handler) fetchWithResilience(r *http.Request) (*Response, error) {
	return executeWithResilience(h.cfg.Resilience, func() (*Response, error) {
		return h.fetch(r)
	})
}

// fetch invokes the backend handler and buffers its response, since a
// Handler must inspect the full response before forwarding it. GET and
// HEAD requests are forced to GET before reaching the backend (spec.md
// §4.2's fetch and validate states both "force method to GET"): cache_key
// does not include method, so a HEAD miss against a backend that omits
// the body for HEAD (e.g. http.ServeContent) would otherwise store an
// empty-body variant later served verbatim to a GET for the same key.
func (h *Handler) fetch(r *http.Request) (*Response, error) {
	if r.Method == methodGet || r.Method == methodHead {
		r = withMethod(r, methodGet)
	}
	rw := newBufferedWriter()
	requestTime := systemClock.Now()
	h.backend.ServeHTTP(rw, r)
	responseTime := systemClock.Now()
	return NewResponse(rw.statusCode(), rw.header, rw.body.Bytes(), r.Method, requestTime, responseTime), nil
}

// withMethod returns r unchanged if it already has method, else a clone
// with its Method set to method.
func withMethod(r *http.Request, method string) *http.Request {
	if r.Method == method {
		return r
	}
	clone := r.Clone(r.Context())
	clone.Method = method
	return clone
}

// bufferedWriter is a minimal http.ResponseWriter that captures a
// backend's response instead of writing it to the network, so the
// Engine can decide whether and how to serve it.
type bufferedWriter struct {
	header      http.Header
	code        int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}}
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.code = code
	w.wroteHeader = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) statusCode() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.code
}

func gatewayTimeoutResponse() *Response {
	now := systemClock.Now()
	h := http.Header{}
	h.Set(headerDate, now.Format(http.TimeFormat))
	body := []byte("cachegate: only-if-cached and no usable cached response\n")
	return NewResponse(http.StatusGatewayTimeout, h, body, methodGet, now, now)
}

// applyConditionalDowngrade implements spec.md §4.2's post-processing
// step: if the client's own If-None-Match matches the final response's
// ETag, or its If-Modified-Since is not earlier than the response's
// Last-Modified, downgrade the response to 304 rather than replaying the
// body the client already has.
func applyConditionalDowngrade(r *http.Request, req *Request, resp *Response, trace *Trace) {
	if !req.Safe() || resp.StatusCode != http.StatusOK {
		return
	}
	etag, lastModified := resp.Validators()

	if inm := r.Header.Get(headerIfNoneMatch); inm != "" && etagMatches(inm, etag) {
		downgradeToNotModified(resp)
		*trace = append(*trace, TraceNotModified)
		return
	}

	if ims := r.Header.Get(headerIfModifiedSince); ims != "" && lastModified != "" {
		imsTime, err1 := http.ParseTime(ims)
		lmTime, err2 := http.ParseTime(lastModified)
		if err1 == nil && err2 == nil && !lmTime.After(imsTime) {
			downgradeToNotModified(resp)
			*trace = append(*trace, TraceNotModified)
		}
	}
}

// etagMatches reports whether candidate (an entity-tag or a
// comma-separated If-None-Match list, possibly "*") matches etag,
// ignoring the weak-validator "W/" prefix (RFC 9111 §8.8.3.2).
func etagMatches(candidate, etag string) bool {
	if etag == "" {
		return false
	}
	if strings.TrimSpace(candidate) == "*" {
		return true
	}
	target := strings.TrimPrefix(etag, "W/")
	for _, part := range strings.Split(candidate, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "W/")
		if part == target {
			return true
		}
	}
	return false
}

// downgradeToNotModified rewrites resp in place into a bodyless 304.
func downgradeToNotModified(resp *Response) {
	resp.StatusCode = http.StatusNotModified
	resp.Body = nil
	resp.Header.Del("Content-Length")
}

func cloneWithValidators(r *http.Request, stored *Response) *http.Request {
	etag, lastModified := stored.Validators()
	needsETag := etag != "" && r.Header.Get(headerIfNoneMatch) == ""
	needsLastModified := lastModified != "" && r.Header.Get(headerIfModifiedSince) == ""
	if !needsETag && !needsLastModified {
		return r
	}
	clone := r.Clone(r.Context())
	if needsETag {
		clone.Header.Set(headerIfNoneMatch, etag)
	}
	if needsLastModified {
		clone.Header.Set(headerIfModifiedSince, lastModified)
	}
	return clone
}

// mergeNotModified folds the end-to-end headers of a 304 response into
// a clone of stored, leaving the stored body untouched (RFC 9111 §3.4).
func mergeNotModified(stored, newResp *Response) *Response {
	merged := stored.Clone()
	for k, v := range newResp.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		merged.Header[k] = v
	}
	merged.responseTime = systemClock.Now()
	merged.cc = parseCacheControl(merged.Header)
	return merged
}

func snapshotVaryHeaders(responseHeader, requestHeader http.Header) http.Header {
	snap := http.Header{}
	for _, field := range varyFields(responseHeader) {
		if field == "*" {
			continue
		}
		if v := requestHeader.Get(field); v != "" {
			snap.Set(field, v)
		}
	}
	return snap
}

// foldHeadersIntoKey extends a base cache key with the values of names,
// independent of the response's own Vary header (spec.md §4.1's
// CacheKeyHeaders expansion).
func foldHeadersIntoKey(base string, header http.Header, names []string) string {
	if len(names) == 0 {
		return base
	}
	h := sha256.New()
	_, _ = io.WriteString(h, base)
	for _, name := range names {
		_, _ = io.WriteString(h, "\x00"+name+"="+header.Get(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}
