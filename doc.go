// Package kmerindex builds compact, filtered indexes from nucleotide k-mer
// hashes to the positions where they occur, and serves exact-hash lookups.
//
// # Quick Start
//
// A simple index takes every (hash, position) pair once:
//
//	ix, _ := kmerindex.Simple(1<<20, 32).ValueBits(32).FixedFilter(500).Build()
//	for pos, h := range hashes {
//	    ix.Add(h, uint64(pos))
//	}
//	ix.Freeze()
//	ix.Search(h, func(pos uint64) bool { ...; return true })
//
// A compressed index stores only the low bits of every hash and needs the
// adds twice, once to count and once to store:
//
//	ix, _ := kmerindex.Compressed(1<<20, 32).PointerBits(20).Build()
//	addAll(ix); ix.Freeze() // counting pass
//	addAll(ix); ix.Freeze() // storing pass
//
// A sharded set builds independent indexes and freezes them on a worker pool:
//
//	set, _ := kmerindex.Sharded(8, 1<<20, 32).Threads(4).Build(ctx)
//	...
//	set.Freeze(ctx, 4)
//
// # Filters
//
// Frequency filters drop highly repetitive k-mers when an index is frozen:
// FixedFilter keeps hashes seen at most n times, ProportionalFilter derives
// the cutoff from the frequency histogram, and LoadBlacklistFilter drops the
// k-mers listed in a blacklist blob. Filters combine with filter.All.
//
// # Persistence
//
// Frozen indexes and sets are saved to any blobstore.Store (local files,
// memory, MinIO, S3) with the persistence package.
package kmerindex
