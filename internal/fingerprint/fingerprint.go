// Package fingerprint derives content identifiers for uploaded documents.
//
// Identity uses SHA-256. A fast non-cryptographic checksum would shave
// microseconds off each upload, but a collision here silently serves one
// document's stored analysis for another, and hashing cost is invisible
// next to a multi-second model call. We take the correctness side of
// that trade.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 of content. Deterministic, no side
// effects.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
