// Package hash provides the checksums and fingerprints used by persistence.
//
// # CRC32-Castagnoli (CRC32C)
//
// Every persisted index frame carries a CRC32C of its payload. Go's crc32
// package uses hardware instructions (SSE4.2, ARM CRC) when available.
//
//	checksum := hash.CRC32C(data)
//
// # Fingerprints
//
// A frozen index is fingerprinted with xxhash64 over its binary encoding. Equal
// fingerprints mean equal content, independent of how many threads built it.
//
//	h := hash.NewFingerprint()
//	idx.WriteTo(h)
//	fp := h.Sum64()
package hash
