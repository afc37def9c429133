package hash

import "github.com/cespare/xxhash/v2"

// Fingerprint returns the xxhash64 digest of data.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// NewFingerprint returns a streaming xxhash64 digest.
func NewFingerprint() *xxhash.Digest {
	return xxhash.New()
}
