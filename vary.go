package cachegate

import (
	"net/http"
	"strings"
)

// varyFields splits a (possibly multi-line, comma-separated) Vary header
// into canonical header names.
func varyFields(h http.Header) []string {
	var fields []string
	for _, line := range h.Values(headerVary) {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			fields = append(fields, http.CanonicalHeaderKey(part))
		}
	}
	return fields
}

// varyIsStar reports RFC 9111 §4.1's Vary: * case: such a stored variant
// matches no incoming request (SPEC_FULL.md §9 Vary handling resolution).
func varyIsStar(h http.Header) bool {
	for _, f := range varyFields(h) {
		if f == "*" {
			return true
		}
	}
	return false
}

// normalizeHeaderValue collapses internal whitespace runs to a single
// space and removes spaces after commas, so "en, fr" and "en,  fr" compare
// equal per RFC 9111 §4.1's header field matching rule.
func normalizeHeaderValue(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	prevSpace := false
	for _, r := range value {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.ReplaceAll(b.String(), ", ", ",")
}

// matchesVary reports whether storedRequestHeaders (the request snapshot
// recorded alongside a stored variant) matches incoming on every header
// named in varyHeader, the variant's stored Vary response header.
// Comparison is case-insensitive on names and whitespace-normalized on
// values; absent and empty are equal (spec.md §4.3 tie-break rules).
func matchesVary(varyHeader http.Header, storedRequestHeaders, incoming http.Header) bool {
	if varyIsStar(varyHeader) {
		return false
	}
	for _, field := range varyFields(varyHeader) {
		stored := normalizeHeaderValue(storedRequestHeaders.Get(field))
		current := normalizeHeaderValue(incoming.Get(field))
		if stored != current {
			return false
		}
	}
	return true
}
