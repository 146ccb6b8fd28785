// Package checksum provides the digest helpers used to fingerprint input
// documents in job records.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString is Sum over a string without an extra copy at call sites.
func SumString(s string) string {
	return Sum([]byte(s))
}
