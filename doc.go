// Package cachegate provides an http.Handler middleware that implements a
// mostly RFC 2616 §13 (HTTP/1.1 caching) compliant reverse-proxy cache in
// front of a backend http.Handler.
//
// The Engine sits between the client and the backend, classifying requests,
// consulting a Metastore for matching cache entries, issuing conditional
// requests to revalidate stale entries, and storing cacheable responses
// through a Metastore/Entitystore pair. See Handler and Engine.
package cachegate
