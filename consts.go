package cachegate

const (
	methodGet    = "GET"
	methodHead   = "HEAD"
	methodPurge  = "PURGE"
	methodPost   = "POST"
	methodPut    = "PUT"
	methodPatch  = "PATCH"
	methodDelete = "DELETE"

	headerAge             = "Age"
	headerDate            = "Date"
	headerExpires         = "Expires"
	headerETag            = "ETag"
	headerLastModified    = "Last-Modified"
	headerVary            = "Vary"
	headerWarning         = "Warning"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"
	headerIfNoneMatch     = "If-None-Match"
	headerIfModifiedSince = "If-Modified-Since"
	headerExpect          = "Expect"
	headerPragma          = "Pragma"
	headerCacheControl    = "Cache-Control"
	headerRackCacheTrace  = "X-Rack-Cache"
	headerVariedPrefix    = "X-Varied-"

	directiveNoCache              = "no-cache"
	directiveNoStore              = "no-store"
	directivePrivate              = "private"
	directivePublic               = "public"
	directiveMaxAge               = "max-age"
	directiveSMaxAge              = "s-maxage"
	directiveMustRevalidate       = "must-revalidate"
	directiveProxyRevalidate      = "proxy-revalidate"
	directiveMustUnderstand       = "must-understand"
	directiveMaxStale             = "max-stale"
	directiveMinFresh             = "min-fresh"
	directiveOnlyIfCached         = "only-if-cached"
	directiveStaleWhileRevalidate = "stale-while-revalidate"
	directiveStaleIfError         = "stale-if-error"

	pragmaNoCache = "no-cache"

	warningResponseIsStale    = `110 - "Response is Stale"`
	warningRevalidationFailed = `111 - "Revalidation Failed"`

	// RFC 2616 §13 / RFC 9111 §5.2.2.3 default set of status codes caches
	// are required to understand under the must-understand extension.
)

var defaultUnderstoodStatusCodes = map[int]bool{
	200: true,
	203: true,
	204: true,
	206: true,
	300: true,
	301: true,
	404: true,
	405: true,
	410: true,
	414: true,
	501: true,
}

// cacheableStatusCodes is the closed set spec.md §3 names for default
// cacheability, independent of the must-understand extension.
var cacheableStatusCodes = map[int]bool{
	200: true,
	203: true,
	300: true,
	301: true,
	302: true,
	404: true,
	410: true,
}

var defaultPrivateHeaders = []string{"Authorization", "Cookie"}

// isInvalidatingMethod reports whether a non-GET/HEAD/PURGE method is
// expected to mutate backend state and therefore invalidate stored variants
// (RFC 9111 §4.4). OPTIONS/TRACE still bypass lookup/store but invalidate
// nothing, per SPEC_FULL.md §4.2 expansion.
func isInvalidatingMethod(method string) bool {
	switch method {
	case methodPost, methodPut, methodPatch, methodDelete:
		return true
	default:
		return false
	}
}
