package index

import (
	"fmt"
	"iter"
	"sort"

	"github.com/hupe1980/kmerindex/internal/search"
	"github.com/hupe1980/kmerindex/kmer"
)

func (ix *Index) checkFrozen() error {
	if s := ix.State(); s != StateFrozen {
		return fmt.Errorf("%w: query in state %s", ErrIllegalState, s)
	}
	return nil
}

// Search calls fn with every value stored for hash, in ascending order, until
// fn returns false.
func (ix *Index) Search(hash uint64, fn func(value uint64) bool) error {
	return ix.SearchExtended(kmer.FromUint64(hash), fn)
}

// SearchExtended is Search for hashes of up to 128 bits.
func (ix *Index) SearchExtended(hash kmer.Hash, fn func(value uint64) bool) error {
	if err := ix.checkFrozen(); err != nil {
		return err
	}
	begin, end := ix.findRun(hash)
	for i := begin; i < end; i++ {
		if !fn(ix.values.Get(i)) {
			break
		}
	}
	return nil
}

// Count returns the number of values stored for hash.
func (ix *Index) Count(hash uint64) (int, error) {
	return ix.CountExtended(kmer.FromUint64(hash))
}

// CountExtended is Count for hashes of up to 128 bits.
func (ix *Index) CountExtended(hash kmer.Hash) (int, error) {
	if err := ix.checkFrozen(); err != nil {
		return 0, err
	}
	begin, end := ix.findRun(hash)
	return int(end - begin), nil
}

// findRun returns the range of entries holding hash. The range is empty when
// the hash is absent.
func (ix *Index) findRun(h kmer.Hash) (int64, int64) {
	if ix.n == 0 || !h.FitsIn(ix.opts.HashBits) {
		return 0, 0
	}
	if ix.valid != nil && !ix.valid.Get(ix.bitKey(h)) {
		return 0, 0
	}

	switch {
	case ix.opts.Compressed:
		pos := ix.split.position(h)
		s, e := int64(ix.pointers[pos]), int64(ix.pointers[pos+1])
		if s == e {
			return 0, 0
		}
		low := ix.split.compress(h)
		var begin int64
		if ix.lowsHi == nil {
			begin = search.LowerBound(ix.lows, s, e-1, low.Lo)
		} else {
			begin = s + int64(sort.Search(int(e-s), func(i int) bool {
				return ix.lowAt(s+int64(i)).Cmp(low) >= 0
			}))
		}
		end := begin
		for end < e && ix.lowAt(end) == low {
			end++
		}
		return begin, end

	case ix.hi == nil:
		keys := search.Slice(ix.lo)
		i := search.InterpolationSearch(keys, 0, ix.n-1, h.Lo)
		if i < 0 {
			return 0, 0
		}
		begin, end := i, i+1
		for begin > 0 && ix.lo[begin-1] == h.Lo {
			begin--
		}
		for end < ix.n && ix.lo[end] == h.Lo {
			end++
		}
		return begin, end

	default:
		begin := int64(sort.Search(int(ix.n), func(i int) bool {
			return ix.hashAt(int64(i)).Cmp(h) >= 0
		}))
		end := begin
		for end < ix.n && ix.hashAt(end) == h {
			end++
		}
		return begin, end
	}
}

// hashAt returns the hash at rank i of a frozen index.
func (ix *Index) hashAt(i int64) kmer.Hash {
	if !ix.opts.Compressed {
		if ix.hi != nil {
			return kmer.Hash{Hi: ix.hi[i], Lo: ix.lo[i]}
		}
		return kmer.FromUint64(ix.lo[i])
	}
	buckets := int64(len(ix.pointers) - 1)
	pos := search.BracketSearch(search.Slice(ix.pointers), 0, buckets, uint64(i))
	return ix.split.decompress(uint64(pos), ix.lowAt(i))
}

func (ix *Index) checkRank(rank int64) error {
	if err := ix.checkFrozen(); err != nil {
		return err
	}
	if rank < 0 || rank >= ix.n {
		return fmt.Errorf("%w: rank %d outside [0,%d)", ErrInvalidArgument, rank, ix.n)
	}
	return nil
}

// Hash returns the hash of the entry at rank in sorted order.
func (ix *Index) Hash(rank int64) (kmer.Hash, error) {
	if err := ix.checkRank(rank); err != nil {
		return kmer.Hash{}, err
	}
	return ix.hashAt(rank), nil
}

// Value returns the value of the entry at rank in sorted order.
func (ix *Index) Value(rank int64) (uint64, error) {
	if err := ix.checkRank(rank); err != nil {
		return 0, err
	}
	return ix.values.Get(rank), nil
}

// Scan calls fn with every entry in (hash, value) order until fn returns false.
func (ix *Index) Scan(fn func(h kmer.Hash, value uint64) bool) error {
	if err := ix.checkFrozen(); err != nil {
		return err
	}
	ix.scan(fn)
	return nil
}

func (ix *Index) scan(fn func(h kmer.Hash, value uint64) bool) {
	if !ix.opts.Compressed {
		for i := int64(0); i < ix.n; i++ {
			if !fn(ix.hashAt(i), ix.values.Get(i)) {
				return
			}
		}
		return
	}
	for p := 0; p+1 < len(ix.pointers); p++ {
		for i := int64(ix.pointers[p]); i < int64(ix.pointers[p+1]); i++ {
			if !fn(ix.split.decompress(uint64(p), ix.lowAt(i)), ix.values.Get(i)) {
				return
			}
		}
	}
}

// All returns an iterator over every entry in (hash, value) order.
func (ix *Index) All() (iter.Seq2[kmer.Hash, uint64], error) {
	if err := ix.checkFrozen(); err != nil {
		return nil, err
	}
	return ix.scan, nil
}

// NumHashes returns the number of distinct hashes in a frozen index.
func (ix *Index) NumHashes() (int64, error) {
	if err := ix.checkFrozen(); err != nil {
		return 0, err
	}
	return ix.stats.Hashes, nil
}

// Stats returns the freeze statistics.
func (ix *Index) Stats() (Stats, error) {
	if err := ix.checkFrozen(); err != nil {
		return Stats{}, err
	}
	return ix.stats, nil
}

// GlobalIntegrity checks the frozen structure: entries sorted by (hash, value),
// monotone initial pointers covering every entry, a valid bit for every stored
// hash and statistics that agree with the storage.
func (ix *Index) GlobalIntegrity() error {
	if err := ix.checkFrozen(); err != nil {
		return err
	}

	if ix.opts.Compressed {
		last := len(ix.pointers) - 1
		if ix.pointers[0] != 0 || ix.pointers[last] != uint64(ix.n) {
			return fmt.Errorf("%w: pointers span [%d,%d], want [0,%d]",
				ErrInconsistent, ix.pointers[0], ix.pointers[last], ix.n)
		}
		for p := 1; p <= last; p++ {
			if ix.pointers[p] < ix.pointers[p-1] {
				return fmt.Errorf("%w: pointer %d decreases", ErrInconsistent, p)
			}
		}
	}

	var (
		hashes int64
		prev   kmer.Hash
		prevV  uint64
		err    error
		i      int64
	)
	ix.scan(func(h kmer.Hash, v uint64) bool {
		if i > 0 {
			c := prev.Cmp(h)
			if c > 0 || (c == 0 && prevV > v) {
				err = fmt.Errorf("%w: entry %d out of order", ErrInconsistent, i)
				return false
			}
			if c == 0 {
				prev, prevV = h, v
				i++
				return true
			}
		}
		hashes++
		if ix.valid != nil && !ix.valid.Get(ix.bitKey(h)) {
			err = fmt.Errorf("%w: hash %s has no valid bit", ErrInconsistent, h)
			return false
		}
		prev, prevV = h, v
		i++
		return true
	})
	if err != nil {
		return err
	}
	if i != ix.n || ix.stats.Entries != ix.n || ix.stats.Hashes != hashes {
		return fmt.Errorf("%w: %d entries and %d hashes, stats report %d and %d",
			ErrInconsistent, i, hashes, ix.stats.Entries, ix.stats.Hashes)
	}
	return nil
}
