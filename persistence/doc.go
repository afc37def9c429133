// Package persistence saves frozen indexes and index sets to a blobstore.Store.
//
// # Index frames
//
// A single index is stored as one blob:
//
//	┌────────┬─────────┬───────┬──────────┬─────────┬────────┬──────────────┐
//	│ magic  │ version │ codec │ reserved │ size    │ crc32c │ payload      │
//	│ 4B     │ 2B      │ 1B    │ 1B       │ 8B      │ 4B     │ ...          │
//	└────────┴─────────┴───────┴──────────┴─────────┴────────┴──────────────┘
//
// The payload is the binary index encoding, block-compressed with the codec
// (none, lz4 or zstd). size is the uncompressed length and the checksum
// covers the stored payload, so corruption is detected before decoding.
//
// # Index sets
//
// A set is stored as one frame per shard, {prefix}/shard-{k}.idx, plus a JSON
// manifest at {prefix}/manifest.json written last. The manifest records the
// xxhash fingerprint and entry count of every shard; LoadSet verifies them.
package persistence
