// Package index provides the k-mer hash index and sets of index shards.
//
// An Index maps hashes of 1 to 128 bits to the values (typically genome
// positions) they were added with. It is built once and then frozen into a
// sorted, read-only structure that answers exact-hash lookups.
//
// # Strategies
//
//   - Simple: full hashes in word arrays. One pass: Add... then Freeze.
//   - Compressed: hashes are split into a bucket position (the top PointerBits
//     bits) and the remaining low bits, which are bit-packed. The adds are made
//     twice: a counting pass, Freeze, a storing pass with the same adds, and a
//     final Freeze.
//
// # Freezing
//
// The final Freeze sorts the entries by (hash, value), builds the frequency
// histogram, initializes the configured filter.Method with the index and drops
// every hash the filter rejects. An optional valid-slot bit vector lets absent
// hashes be rejected without a search.
//
//	ix, err := index.New(func(o *index.Options) {
//	    o.Capacity = 1 << 20
//	    o.HashBits = 32
//	    o.ValueBits = 32
//	    o.Filter = filter.Fixed(100)
//	})
//	...
//	for pos, h := range hashes {
//	    if err := ix.Add(h, uint64(pos)); err != nil { ... }
//	}
//	if err := ix.Freeze(); err != nil { ... }
//	ix.Search(h, func(pos uint64) bool { ...; return true })
//
// # Concurrency
//
// Add and Freeze are single-writer; an overlapping call fails with
// ErrConcurrentModification. A frozen index is immutable and safe for
// concurrent queries. Set freezes its shards on a bounded worker pool.
package index
