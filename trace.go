package cachegate

import "strings"

// TraceEvent is one entry in a request's Trace, drawn from the closed set
// spec.md §3 names.
type TraceEvent string

const (
	TracePass          TraceEvent = "pass"
	TraceInvalidate    TraceEvent = "invalidate"
	TraceReload        TraceEvent = "reload"
	TraceFresh         TraceEvent = "fresh"
	TraceStale         TraceEvent = "stale"
	TraceValid         TraceEvent = "valid"
	TraceInvalid       TraceEvent = "invalid"
	TraceMiss          TraceEvent = "miss"
	TraceStore         TraceEvent = "store"
	TracePurge         TraceEvent = "purge"
	TraceSWR           TraceEvent = "swr"            // stale-while-revalidate serve
	TraceStaleIfError  TraceEvent = "stale-if-error"  // stale-if-error fallback serve
	TraceNotModified   TraceEvent = "not_modified"    // post-processing 304 downgrade
)

// Trace is the ordered event log the Engine builds for one request.
type Trace []TraceEvent

// String renders the trace as the comma-separated form written to
// X-Rack-Cache and to the verbose log line (spec.md §4.2).
func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, e := range t {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}
