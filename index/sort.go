package index

import (
	"cmp"
	"slices"

	"github.com/hupe1980/kmerindex/internal/psort"
	"github.com/hupe1980/kmerindex/kmer"
)

// sortedEntries holds a sorted copy of the entries while the final Freeze
// filters them. The live storage is left alone until assembly succeeds.
type sortedEntries struct {
	hi   []uint64 // nil unless the hashes or their compressed parts need two words
	lo   []uint64 // full low words, or the low word of the compressed parts
	vals []uint64

	// starts holds the bucket boundaries: the initial pointers of a compressed
	// index, or {0, n} for a simple one.
	starts []uint64
}

type pair struct {
	key kmer.Hash
	val uint64
}

func (ix *Index) sortEntries() *sortedEntries {
	if ix.opts.Compressed {
		return ix.sortBuckets()
	}
	return ix.sortFlat()
}

// sortFlat orders the simple storage by (hash, value, insertion).
func (ix *Index) sortFlat() *sortedEntries {
	n := int(ix.n)
	perm := psort.Permutation(n, ix.opts.Threads, func(a, b int) int {
		if ix.hi != nil {
			if c := cmp.Compare(ix.hi[a], ix.hi[b]); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(ix.lo[a], ix.lo[b]); c != 0 {
			return c
		}
		return cmp.Compare(ix.values.Get(int64(a)), ix.values.Get(int64(b)))
	})

	out := &sortedEntries{
		lo:     make([]uint64, n),
		vals:   make([]uint64, n),
		starts: []uint64{0, uint64(n)},
	}
	if ix.hi != nil {
		out.hi = make([]uint64, n)
	}
	// Each worker writes a disjoint range of the plain output slices.
	_ = psort.ForEachChunk(n, ix.opts.Threads, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			src := perm[i]
			out.lo[i] = ix.lo[src]
			if out.hi != nil {
				out.hi[i] = ix.hi[src]
			}
			out.vals[i] = ix.values.Get(int64(src))
		}
		return nil
	})
	return out
}

// sortBuckets orders each bucket of the compressed storage by (compressed
// part, value).
// Buckets are independent, so workers take contiguous bucket ranges.
func (ix *Index) sortBuckets() *sortedEntries {
	n := ix.n
	buckets := len(ix.pointers) - 1
	pairs := make([]pair, n)

	_ = psort.ForEachChunk(buckets, ix.opts.Threads, func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			s, e := int64(ix.pointers[p]), int64(ix.pointers[p+1])
			for i := s; i < e; i++ {
				pairs[i] = pair{key: ix.lowAt(i), val: ix.values.Get(i)}
			}
			// Equal pairs are indistinguishable, so stability does not matter.
			slices.SortFunc(pairs[s:e], func(a, b pair) int {
				if c := a.key.Cmp(b.key); c != 0 {
					return c
				}
				return cmp.Compare(a.val, b.val)
			})
		}
		return nil
	})

	out := &sortedEntries{
		lo:     make([]uint64, n),
		vals:   make([]uint64, n),
		starts: slices.Clone(ix.pointers),
	}
	if ix.lowsHi != nil {
		out.hi = make([]uint64, n)
	}
	for i, pr := range pairs {
		out.lo[i], out.vals[i] = pr.key.Lo, pr.val
		if out.hi != nil {
			out.hi[i] = pr.key.Hi
		}
	}
	return out
}

// runs calls fn for every run of equal hashes with its bucket, its range
// [begin, end) and the full hash.
func (s *sortedEntries) runs(ix *Index, fn func(bucket, begin, end int64, h kmer.Hash)) {
	for p := 0; p+1 < len(s.starts); p++ {
		begin, stop := int64(s.starts[p]), int64(s.starts[p+1])
		for begin < stop {
			end := begin + 1
			for end < stop && s.lo[end] == s.lo[begin] && (s.hi == nil || s.hi[end] == s.hi[begin]) {
				end++
			}
			fn(int64(p), begin, end, s.hash(ix, uint64(p), begin))
			begin = end
		}
	}
}

func (s *sortedEntries) hash(ix *Index, bucket uint64, i int64) kmer.Hash {
	h := kmer.FromUint64(s.lo[i])
	if s.hi != nil {
		h.Hi = s.hi[i]
	}
	if ix.opts.Compressed {
		return ix.split.decompress(bucket, h)
	}
	return h
}
