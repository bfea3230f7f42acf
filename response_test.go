package cachegate

import (
	"net/http"
	"testing"
	"time"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := systemClock
	systemClock = fixedClock{now}
	t.Cleanup(func() { systemClock = prev })
}

func TestNewResponse_SynthesizesDate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewResponse(200, http.Header{}, nil, "GET", now, now)
	if r.Header.Get(headerDate) == "" {
		t.Error("expected NewResponse to synthesize a Date header")
	}
}

func TestNewResponse_PreservesExistingDate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	existing := now.Add(-time.Hour)
	h := http.Header{headerDate: {existing.Format(http.TimeFormat)}}
	r := NewResponse(200, h, nil, "GET", now, now)
	if r.Header.Get(headerDate) != existing.Format(http.TimeFormat) {
		t.Error("expected existing Date header to be preserved")
	}
}

func TestResponse_Clone_Independent(t *testing.T) {
	now := time.Now().UTC()
	r := NewResponse(200, http.Header{"X": {"1"}}, []byte("body"), "GET", now, now)
	c := r.Clone()

	c.Header.Set("X", "2")
	c.Body[0] = 'B'

	if r.Header.Get("X") != "1" {
		t.Error("Clone() header should be independent of the original")
	}
	if r.Body[0] == 'B' {
		t.Error("Clone() body should be independent of the original")
	}
}

func TestResponse_Age_UsesAgeHeaderAndResidentTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, now)

	requestTime := now.Add(-2 * time.Second)
	responseTime := now.Add(-1 * time.Second)
	h := http.Header{
		headerDate: {responseTime.Format(http.TimeFormat)},
		headerAge:  {"5"},
	}
	r := NewResponse(200, h, nil, "GET", requestTime, responseTime)

	age := r.Age()
	// corrected = 5s (age header) + 1s (resident) + 1s (since response) = 7s
	if age != 7*time.Second {
		t.Errorf("Age() = %v, want 7s", age)
	}
}

func TestResponse_Age_ApparentAgeFloor(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, now)

	h := http.Header{headerDate: {now.Format(http.TimeFormat)}}
	r := NewResponse(200, h, nil, "GET", now, now)
	if r.Age() < 0 {
		t.Error("expected Age() to never be negative")
	}
}

func TestResponse_FreshnessLifetime_SMaxAgePreferredForShared(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"max-age=10, s-maxage=60"}}
	r := NewResponse(200, h, nil, "GET", now, now)

	lifetime, ok := r.freshnessLifetime(true)
	if !ok || lifetime != 60*time.Second {
		t.Errorf("freshnessLifetime(shared) = %v, %v; want 60s, true", lifetime, ok)
	}

	lifetime, ok = r.freshnessLifetime(false)
	if !ok || lifetime != 10*time.Second {
		t.Errorf("freshnessLifetime(private) = %v, %v; want 10s, true", lifetime, ok)
	}
}

func TestResponse_FreshnessLifetime_ExpiresFallback(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(30 * time.Minute)
	h := http.Header{
		headerDate:    {now.Format(http.TimeFormat)},
		headerExpires: {expires.Format(http.TimeFormat)},
	}
	r := NewResponse(200, h, nil, "GET", now, now)

	lifetime, ok := r.freshnessLifetime(false)
	if !ok || lifetime != 30*time.Minute {
		t.Errorf("freshnessLifetime() = %v, %v; want 30m, true", lifetime, ok)
	}
}

func TestResponse_FreshnessLifetime_Undefined(t *testing.T) {
	now := time.Now().UTC()
	r := NewResponse(200, http.Header{}, nil, "GET", now, now)
	if _, ok := r.freshnessLifetime(false); ok {
		t.Error("expected freshnessLifetime() to be undefined with no max-age/Expires")
	}
}

func TestResponse_Fresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, now)

	h := http.Header{
		headerDate:         {now.Format(http.TimeFormat)},
		headerCacheControl: {"max-age=60"},
	}
	r := NewResponse(200, h, nil, "GET", now, now)
	if !r.Fresh(false) {
		t.Error("expected response with positive TTL to be Fresh()")
	}
}

func TestResponse_Fresh_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	responseTime := now.Add(-2 * time.Hour)
	withClock(t, now)

	h := http.Header{
		headerDate:         {responseTime.Format(http.TimeFormat)},
		headerCacheControl: {"max-age=60"},
	}
	r := NewResponse(200, h, nil, "GET", responseTime, responseTime)
	if r.Fresh(false) {
		t.Error("expected response older than max-age to not be Fresh()")
	}
}

func TestResponse_SetTTL(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerExpires: {now.Format(http.TimeFormat)}}
	r := NewResponse(200, h, nil, "GET", now, now)

	r.SetTTL(120)

	if r.Header.Get(headerExpires) != "" {
		t.Error("expected SetTTL to clear Expires")
	}
	if v, ok := r.cc.seconds(directiveMaxAge); !ok || v != 120 {
		t.Errorf("expected max-age=120 after SetTTL, got %d, %v", v, ok)
	}
}

func TestResponse_MarkPrivate(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"public, max-age=60"}}
	r := NewResponse(200, h, nil, "GET", now, now)

	r.MarkPrivate()

	if !r.PrivateDirective() {
		t.Error("expected MarkPrivate() to set private")
	}
	if r.Public() {
		t.Error("expected MarkPrivate() to clear public")
	}
}

func TestResponse_Validators(t *testing.T) {
	h := http.Header{headerETag: {`"abc"`}, headerLastModified: {"Mon, 01 Jan 2024 00:00:00 GMT"}}
	r := NewResponse(200, h, nil, "GET", time.Now(), time.Now())
	etag, lastMod := r.Validators()
	if etag != `"abc"` || lastMod != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Errorf("Validators() = %q, %q", etag, lastMod)
	}
}

func TestResponse_Cacheable_Basic(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, now)

	h := http.Header{
		headerDate:         {now.Format(http.TimeFormat)},
		headerCacheControl: {"max-age=60"},
	}
	r := NewResponse(200, h, nil, "GET", now, now)
	if !r.Cacheable(false, nil) {
		t.Error("expected fresh 200 GET response to be cacheable")
	}
}

func TestResponse_Cacheable_NonGetMethod(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"max-age=60"}}
	r := NewResponse(200, h, nil, "POST", now, now)
	if r.Cacheable(false, nil) {
		t.Error("expected POST response to never be cacheable")
	}
}

func TestResponse_Cacheable_NoStore(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"no-store, max-age=60"}}
	r := NewResponse(200, h, nil, "GET", now, now)
	if r.Cacheable(false, nil) {
		t.Error("expected no-store response to never be cacheable")
	}
}

func TestResponse_Cacheable_SharedPrivateExcluded(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"private, max-age=60"}}
	r := NewResponse(200, h, nil, "GET", now, now)
	if r.Cacheable(true, nil) {
		t.Error("expected private response to be excluded from a shared cache")
	}
	if !r.Cacheable(false, nil) {
		t.Error("expected private response to remain cacheable for a private cache")
	}
}

func TestResponse_Cacheable_ValidatorWithoutMaxAge(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerETag: {`"v1"`}}
	r := NewResponse(200, h, nil, "GET", now, now)
	if !r.Cacheable(false, nil) {
		t.Error("expected response with a validator to be cacheable even without max-age")
	}
}

func TestResponse_Cacheable_MustUnderstand(t *testing.T) {
	now := time.Now().UTC()
	h := http.Header{headerCacheControl: {"must-understand, max-age=60"}}
	r := NewResponse(451, h, nil, "GET", now, now)
	if r.Cacheable(false, nil) {
		t.Error("expected must-understand with an unrecognized status code to be uncacheable")
	}

	r2 := NewResponse(200, h, nil, "GET", now, now)
	if !r2.Cacheable(false, nil) {
		t.Error("expected must-understand with a recognized status code to remain cacheable")
	}
}

func TestResponse_SetAgeHeader(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, now)

	h := http.Header{headerDate: {now.Add(-10 * time.Second).Format(http.TimeFormat)}}
	r := NewResponse(200, h, nil, "GET", now, now)
	r.SetAgeHeader()

	if r.Header.Get(headerAge) != "10" {
		t.Errorf("SetAgeHeader() wrote %q, want 10", r.Header.Get(headerAge))
	}
}

func TestResponse_StaleWhileRevalidate(t *testing.T) {
	h := http.Header{headerCacheControl: {"max-age=60, stale-while-revalidate=30"}}
	r := NewResponse(200, h, nil, "GET", time.Now(), time.Now())
	d, ok := r.StaleWhileRevalidate()
	if !ok || d != 30*time.Second {
		t.Errorf("StaleWhileRevalidate() = %v, %v; want 30s, true", d, ok)
	}
}

func TestResponse_StaleIfError(t *testing.T) {
	h := http.Header{headerCacheControl: {"stale-if-error"}}
	r := NewResponse(200, h, nil, "GET", time.Now(), time.Now())
	_, unlimited, present := r.StaleIfError()
	if !present || !unlimited {
		t.Errorf("expected value-less stale-if-error to be unlimited and present")
	}
}
