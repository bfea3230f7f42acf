package cachegate

import (
	"net/url"
	"sort"
	"strings"
)

// KeyFunc derives a deterministic, opaque cache key from a Request. A
// user-supplied KeyFunc replaces DefaultKey; spec.md §4.5 requires only
// that it be stable for a given request.
type KeyFunc func(*Request) string

// DefaultKey implements spec.md §4.5: scheme://host/path?sorted(query),
// with query parameters lexicographically ordered and percent-encoding
// normalized via net/url's own re-encoding.
func DefaultKey(r *Request) string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())

	if len(keys) > 0 {
		b.WriteByte('?')
		first := true
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if !first {
					b.WriteByte('&')
				}
				first = false
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}

	return b.String()
}
