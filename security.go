package cachegate

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashKey converts a cache key to its SHA-256 hash, giving every backend
// a fixed-length, collision-resistant on-disk key regardless of the
// original URL's length (grounded on the teacher's Transport, which
// always hashed keys before handing them to a Cache backend).
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
