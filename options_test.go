package cachegate

import (
	"reflect"
	"testing"
)

func TestDefaultConfig_Defaults(t *testing.T) {
	c := DefaultConfig()

	if c.MetastoreURI != "heap:/" || c.EntitystoreURI != "heap:/" {
		t.Errorf("expected heap URIs by default, got %q/%q", c.MetastoreURI, c.EntitystoreURI)
	}
	if !c.EnableStaleWhileRevalidate || !c.EnableStaleIfError {
		t.Error("expected stale-while-revalidate and stale-if-error to default on")
	}
	if !c.Verbose {
		t.Error("expected Verbose to default on")
	}
	if !reflect.DeepEqual(c.PrivateHeaders, defaultPrivateHeaders) {
		t.Errorf("PrivateHeaders = %v, want %v", c.PrivateHeaders, defaultPrivateHeaders)
	}
	if c.Metrics == nil {
		t.Error("expected a default metrics collector")
	}
}

func TestConfig_PrivateHeaders_FallsBackWhenEmpty(t *testing.T) {
	c := &Config{}
	if got := c.privateHeaders(); !reflect.DeepEqual(got, defaultPrivateHeaders) {
		t.Errorf("privateHeaders() = %v, want %v", got, defaultPrivateHeaders)
	}
}

func TestConfig_PrivateHeaders_RespectsOverride(t *testing.T) {
	custom := []string{"X-Custom"}
	c := &Config{PrivateHeaders: custom}
	if got := c.privateHeaders(); !reflect.DeepEqual(got, custom) {
		t.Errorf("privateHeaders() = %v, want %v", got, custom)
	}
}

func TestConfig_KeyFunc_DefaultsWhenNil(t *testing.T) {
	c := &Config{}
	if c.keyFunc() == nil {
		t.Fatal("keyFunc() returned nil")
	}
	r := &Request{URL: "http://example.com/a"}
	if c.keyFunc()(r) != DefaultKey(r) {
		t.Error("expected keyFunc() to fall back to DefaultKey")
	}
}

func TestConfig_KeyFunc_RespectsOverride(t *testing.T) {
	custom := func(r *Request) string { return "fixed" }
	c := &Config{CacheKey: custom}
	if got := c.keyFunc()(&Request{}); got != "fixed" {
		t.Errorf("keyFunc() = %q, want %q", got, "fixed")
	}
}

func TestConfig_MetricsCollector_DefaultsWhenNil(t *testing.T) {
	c := &Config{}
	if c.metricsCollector() == nil {
		t.Error("expected metricsCollector() to fall back to a non-nil default")
	}
}

func TestConfig_UnderstoodStatusCodes_DefaultsWhenNil(t *testing.T) {
	c := &Config{}
	got := c.understoodStatusCodes()
	if !reflect.DeepEqual(got, defaultUnderstoodStatusCodes) {
		t.Error("expected understoodStatusCodes() to fall back to the default set")
	}
}

func TestConfig_UnderstoodStatusCodes_RespectsOverride(t *testing.T) {
	custom := map[int]bool{200: true}
	c := &Config{UnderstoodStatusCodes: custom}
	got := c.understoodStatusCodes()
	if !reflect.DeepEqual(got, custom) {
		t.Error("expected understoodStatusCodes() to respect an explicit override")
	}
}
