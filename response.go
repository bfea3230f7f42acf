package cachegate

import (
	"net/http"
	"strconv"
	"time"
)

// clock abstracts wall time so freshness arithmetic is testable; grounded
// on the teacher's freshness.go timer interface.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

var systemClock clock = realClock{}

// Response is a cache-engine view of an HTTP response: status, headers and
// body, plus the freshness/cacheability arithmetic of spec.md §4.6.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	requestMethod string // method of the request that produced this response
	requestTime   time.Time
	responseTime  time.Time
	cc            directives
}

// NewResponse builds a Response, synthesizing a Date header if the backend
// omitted one (spec.md §3: "if absent, set to now when the response is
// created").
func NewResponse(statusCode int, header http.Header, body []byte, requestMethod string, requestTime, responseTime time.Time) *Response {
	if header == nil {
		header = http.Header{}
	}
	r := &Response{
		StatusCode:    statusCode,
		Header:        header,
		Body:          body,
		requestMethod: requestMethod,
		requestTime:   requestTime,
		responseTime:  responseTime,
	}
	if r.Header.Get(headerDate) == "" {
		r.Header.Set(headerDate, responseTime.Format(http.TimeFormat))
	}
	r.cc = parseCacheControl(r.Header)
	return r
}

// Clone returns a deep-enough copy safe to mutate independently (used when
// building a 304-merged response from a stored entry).
func (r *Response) Clone() *Response {
	c := *r
	c.Header = r.Header.Clone()
	c.Body = append([]byte(nil), r.Body...)
	c.cc = parseCacheControl(c.Header)
	return &c
}

func (r *Response) date() time.Time {
	t, err := http.ParseTime(r.Header.Get(headerDate))
	if err != nil {
		return r.responseTime
	}
	return t
}

// Age implements spec.md §4.6's age formula:
//
//	apparent_age = max(0, response_time - date_value)
//	corrected_age = age_value + (response_time - request_time) + (now - response_time)
//	age = max(apparent_age, corrected_age)
func (r *Response) Age() time.Duration {
	date := r.date()
	apparent := r.responseTime.Sub(date)
	if apparent < 0 {
		apparent = 0
	}

	var ageValue time.Duration
	if raw := r.Header.Get(headerAge); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs >= 0 {
			ageValue = time.Duration(secs) * time.Second
		}
	}

	residentTime := r.responseTime.Sub(r.requestTime)
	if residentTime < 0 {
		residentTime = 0
	}
	sinceResponse := systemClock.Now().Sub(r.responseTime)
	if sinceResponse < 0 {
		sinceResponse = 0
	}
	corrected := ageValue + residentTime + sinceResponse

	age := apparent
	if corrected > age {
		age = corrected
	}
	return age
}

// freshnessLifetime implements spec.md §4.6's lifetime formula: s-maxage
// (preferred for shared caches) or max-age, else Expires-Date, else unset.
func (r *Response) freshnessLifetime(isShared bool) (time.Duration, bool) {
	if isShared {
		if secs, ok := r.cc.seconds(directiveSMaxAge); ok {
			return time.Duration(secs) * time.Second, true
		}
	}
	if secs, ok := r.cc.seconds(directiveMaxAge); ok {
		return time.Duration(secs) * time.Second, true
	}
	if expiresRaw := r.Header.Get(headerExpires); expiresRaw != "" {
		expires, err := http.ParseTime(expiresRaw)
		if err == nil {
			return expires.Sub(r.date()), true
		}
	}
	return 0, false
}

// TTL returns freshness_lifetime - age, and whether a lifetime is defined
// at all (spec.md §4.6).
func (r *Response) TTL(isShared bool) (time.Duration, bool) {
	lifetime, ok := r.freshnessLifetime(isShared)
	if !ok {
		return 0, false
	}
	return lifetime - r.Age(), true
}

// Fresh reports whether TTL is defined and positive.
func (r *Response) Fresh(isShared bool) bool {
	ttl, ok := r.TTL(isShared)
	return ok && ttl > 0
}

// SetTTL writes Cache-Control: max-age=v and clears any Expires header, per
// spec.md §3's mutation invariant.
func (r *Response) SetTTL(seconds int64) {
	r.Header.Set(headerCacheControl, directiveMaxAge+"="+strconv.FormatInt(seconds, 10))
	r.Header.Del(headerExpires)
	r.cc = parseCacheControl(r.Header)
}

// MarkPrivate sets Cache-Control: private and clears public, per spec.md
// §3's mutation invariant.
func (r *Response) MarkPrivate() {
	r.Header.Del(headerCacheControl)
	r.Header.Set(headerCacheControl, directivePrivate)
	r.cc = parseCacheControl(r.Header)
}

// Public reports Cache-Control: public.
func (r *Response) Public() bool { return r.cc.has(directivePublic) }

// PrivateDirective reports Cache-Control: private.
func (r *Response) PrivateDirective() bool { return r.cc.has(directivePrivate) }

// MustRevalidate reports Cache-Control: must-revalidate.
func (r *Response) MustRevalidate() bool { return r.cc.has(directiveMustRevalidate) }

// ProxyRevalidate reports Cache-Control: proxy-revalidate.
func (r *Response) ProxyRevalidate() bool { return r.cc.has(directiveProxyRevalidate) }

// NoStore reports Cache-Control: no-store.
func (r *Response) NoStore() bool { return r.cc.has(directiveNoStore) }

// MustUnderstand reports Cache-Control: must-understand.
func (r *Response) MustUnderstand() bool { return r.cc.has(directiveMustUnderstand) }

// StaleWhileRevalidate returns the Cache-Control: stale-while-revalidate=N
// window, if present.
func (r *Response) StaleWhileRevalidate() (time.Duration, bool) {
	secs, ok := r.cc.seconds(directiveStaleWhileRevalidate)
	if !ok {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// StaleIfError returns the Cache-Control: stale-if-error directive.
// unlimited is true when the directive carries no value.
func (r *Response) StaleIfError() (seconds time.Duration, unlimited bool, present bool) {
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
	return time.Duration(n) * time.Second, false, true
}

// Validators returns the ETag and Last-Modified validators, if present.
func (r *Response) Validators() (etag, lastModified string) {
	return r.Header.Get(headerETag), r.Header.Get(headerLastModified)
}

// Cacheable implements spec.md §3's cacheable predicate.
func (r *Response) Cacheable(isShared bool, understood map[int]bool) bool {
	if r.requestMethod != methodGet && r.requestMethod != methodHead {
		return false
	}
	if r.MustUnderstand() {
		if understood == nil {
			understood = defaultUnderstoodStatusCodes
		}
		if !understood[r.StatusCode] {
			return false
		}
	} else if r.NoStore() || !cacheableStatusCodes[r.StatusCode] {
		return false
	}
	if isShared && r.PrivateDirective() {
		return false
	}
	etag, lastModified := r.Validators()
	hasValidator := etag != "" || lastModified != ""
	return r.Fresh(isShared) || hasValidator
}

// SetAgeHeader writes the current computed Age as the Age response header.
func (r *Response) SetAgeHeader() {
	secs := int64(r.Age().Seconds())
	if secs < 0 {
		secs = 0
	}
	r.Header.Set(headerAge, strconv.FormatInt(secs, 10))
}

// WriteTo replays status, headers and body onto an http.ResponseWriter.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = v
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}
