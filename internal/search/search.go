package search

import "math/bits"

// Sequence is a random-access sequence of unsigned integers.
//
// Searches only require ascending order within the range they are given.
type Sequence interface {
	Get(i int64) uint64
	Len() int64
}

// Slice adapts a []uint64 to Sequence.
type Slice []uint64

// Get returns s[i].
func (s Slice) Get(i int64) uint64 { return s[i] }

// Len returns len(s).
func (s Slice) Len() int64 { return int64(len(s)) }

// BinarySearch returns an index i in [lo, hi] with seq[i] == key, or -1.
//
// Among duplicates any matching index may be returned.
func BinarySearch(seq Sequence, lo, hi int64, key uint64) int64 {
	for lo <= hi {
		mid := lo + (hi-lo)/2
		v := seq.Get(mid)
		switch {
		case v < key:
			lo = mid + 1
		case v > key:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -1
}

// InterpolationSearch has the same contract as BinarySearch but probes where key
// would sit if values in [lo, hi] were evenly spread.
//
// The probe is computed with exact 128-bit arithmetic and always lies within the
// current range, so every step shrinks it and the search terminates on any input.
func InterpolationSearch(seq Sequence, lo, hi int64, key uint64) int64 {
	for lo <= hi {
		vlo := seq.Get(lo)
		if key < vlo {
			return -1
		}
		if key == vlo {
			return lo
		}
		vhi := seq.Get(hi)
		if key > vhi {
			return -1
		}
		if key == vhi {
			return hi
		}
		// vlo < key < vhi, so lo < hi and the range has at least one interior slot.
		mid := lo + probe(key-vlo, vhi-vlo, uint64(hi-lo))
		if mid <= lo {
			mid = lo + 1
		} else if mid >= hi {
			mid = hi - 1
		}
		v := seq.Get(mid)
		switch {
		case v < key:
			lo = mid + 1
		case v > key:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -1
}

// probe returns floor(off * width / span) for off < span.
func probe(off, span, width uint64) int64 {
	h, l := bits.Mul64(off, width)
	q, _ := bits.Div64(h, l, span)
	return int64(q)
}

// BracketSearch returns i in [lo, hi) with seq[i] <= key < seq[i+1].
//
// It returns -1 when the range is empty, when key < seq[lo] or when key >= seq[hi].
func BracketSearch(seq Sequence, lo, hi int64, key uint64) int64 {
	if lo > hi || key < seq.Get(lo) || key >= seq.Get(hi) {
		return -1
	}
	// Invariant: seq[lo] <= key < seq[hi].
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if seq.Get(mid) <= key {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// LowerBound returns the first index i in [lo, hi] with seq[i] >= key, or hi+1
// when every value is smaller.
func LowerBound(seq Sequence, lo, hi int64, key uint64) int64 {
	end := hi + 1
	for lo < end {
		mid := lo + (end-lo)/2
		if seq.Get(mid) < key {
			lo = mid + 1
		} else {
			end = mid
		}
	}
	return lo
}
