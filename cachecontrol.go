package cachegate

import (
	"net/http"
	"strconv"
	"strings"
)

// directives is a parsed Cache-Control header: directive name to value
// (empty string for value-less directives such as no-cache or private).
type directives map[string]string

// parseCacheControl parses the Cache-Control header, folding duplicate
// directives to their first occurrence (RFC 9111 §4.2.1) and logging a
// diagnostic when directives conflict.
func parseCacheControl(h http.Header) directives {
	cc := directives{}
	seen := map[string]bool{}

	for _, line := range h.Values(headerCacheControl) {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			name, value, _ := strings.Cut(part, "=")
			name = strings.TrimSpace(strings.ToLower(name))
			value = strings.Trim(strings.TrimSpace(value), `"`)

			if seen[name] {
				continue
			}
			seen[name] = true
			cc[name] = value
		}
	}

	if _, hasNoCache := cc[directiveNoCache]; hasNoCache {
		if _, hasMaxAge := cc[directiveMaxAge]; hasMaxAge {
			GetLogger().Debug(logConflictingDirectives, "conflict", "no-cache+max-age", "resolution", "no-cache wins")
		}
	}
	if _, hasPrivate := cc[directivePrivate]; hasPrivate {
		if _, hasPublic := cc[directivePublic]; hasPublic {
			GetLogger().Debug(logConflictingDirectives, "conflict", "public+private", "resolution", "private wins")
			delete(cc, directivePublic)
		}
	}
	if _, hasNoStore := cc[directiveNoStore]; hasNoStore {
		if _, hasMaxAge := cc[directiveMaxAge]; hasMaxAge {
			GetLogger().Debug(logConflictingDirectives, "conflict", "no-store+max-age", "resolution", "no-store wins")
		}
		if _, hasMustRevalidate := cc[directiveMustRevalidate]; hasMustRevalidate {
			GetLogger().Debug(logConflictingDirectives, "conflict", "no-store+must-revalidate", "resolution", "no-store wins")
		}
	}

	return cc
}

const logConflictingDirectives = "conflicting Cache-Control directives detected"

// has reports whether the named directive is present, regardless of value.
func (d directives) has(name string) bool {
	_, ok := d[name]
	return ok
}

// seconds parses a directive's value as a non-negative integer number of
// seconds. ok is false if the directive is absent or malformed.
func (d directives) seconds(name string) (v int64, ok bool) {
	raw, present := d[name]
	if !present {
		return 0, false
	}
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
