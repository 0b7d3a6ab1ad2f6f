package credential

import (
	"crypto/subtle"
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

// HashHex returns the lowercase hex SHA-256 digest of b.
func HashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// hashEqual compares two hex digests byte for byte in constant time.
func hashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
