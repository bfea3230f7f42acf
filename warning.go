package cachegate

// addStaleWarning adds "110 - Response is Stale" (RFC 7234 §5.5) to r.
func addStaleWarning(r *Response) {
	r.Header.Add(headerWarning, warningResponseIsStale)
}

// addRevalidationFailedWarning adds "111 - Revalidation Failed" (RFC 7234
// §5.5) to r.
func addRevalidationFailedWarning(r *Response) {
	r.Header.Add(headerWarning, warningRevalidationFailed)
}
