package cachegate

import "testing"

func TestDefaultKey_SortsQueryParams(t *testing.T) {
	r := &Request{URL: "http://example.com/path?b=2&a=1"}
	got := DefaultKey(r)
	want := "http://example.com/path?a=1&b=2"
	if got != want {
		t.Errorf("DefaultKey() = %q, want %q", got, want)
	}
}

func TestDefaultKey_NoQuery(t *testing.T) {
	r := &Request{URL: "http://example.com/path"}
	got := DefaultKey(r)
	want := "http://example.com/path"
	if got != want {
		t.Errorf("DefaultKey() = %q, want %q", got, want)
	}
}

func TestDefaultKey_StableAcrossParamOrder(t *testing.T) {
	r1 := &Request{URL: "http://example.com/p?a=1&b=2"}
	r2 := &Request{URL: "http://example.com/p?b=2&a=1"}
	if DefaultKey(r1) != DefaultKey(r2) {
		t.Error("expected identical keys regardless of query parameter order")
	}
}

func TestDefaultKey_MultiValueParam(t *testing.T) {
	r := &Request{URL: "http://example.com/p?a=2&a=1"}
	got := DefaultKey(r)
	want := "http://example.com/p?a=1&a=2"
	if got != want {
		t.Errorf("DefaultKey() = %q, want %q", got, want)
	}
}

func TestDefaultKey_DifferentPathsDifferentKeys(t *testing.T) {
	r1 := &Request{URL: "http://example.com/a"}
	r2 := &Request{URL: "http://example.com/b"}
	if DefaultKey(r1) == DefaultKey(r2) {
		t.Error("expected different paths to produce different keys")
	}
}

func TestDefaultKey_RelativeURLFallback(t *testing.T) {
	r := &Request{URL: "/just/a/path"}
	got := DefaultKey(r)
	if got != "/just/a/path" {
		t.Errorf("DefaultKey() = %q, want %q", got, "/just/a/path")
	}
}
