// Package histogram provides a sparse frequency histogram of hash occurrences.
//
// A Sparse histogram records, for each observed frequency, how many distinct
// hashes occurred exactly that many times. Entries are kept in strictly
// ascending frequency order; frequencies with no hashes are not stored.
package histogram

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrOutOfOrder is returned when Add is called with a frequency lower than the last one.
var ErrOutOfOrder = errors.New("frequency out of order")

// Sparse is an ordered list of (frequency, count) pairs.
//
// The zero value is an empty histogram ready for use.
type Sparse struct {
	frequencies []int64
	counts      []int64
}

// New returns an empty histogram.
func New() *Sparse {
	return &Sparse{}
}

// Add records count hashes with the given frequency.
//
// Frequencies must be added in ascending order. Adding the same frequency as the
// last entry accumulates into it.
func (s *Sparse) Add(frequency, count int64) error {
	n := len(s.frequencies)
	if n > 0 {
		last := s.frequencies[n-1]
		if frequency == last {
			s.counts[n-1] += count
			return nil
		}
		if frequency < last {
			return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, frequency, last)
		}
	}
	s.frequencies = append(s.frequencies, frequency)
	s.counts = append(s.counts, count)
	return nil
}

// FromIndividualFrequencies builds a histogram from per-hash frequencies.
//
// Only frequencies in [1, maxFrequency] are counted; zero counts are omitted.
func FromIndividualFrequencies(frequencies []int64, maxFrequency int64) *Sparse {
	s := New()
	if maxFrequency < 1 {
		return s
	}
	tally := make([]int64, maxFrequency+1)
	for _, f := range frequencies {
		if f >= 1 && f <= maxFrequency {
			tally[f]++
		}
	}
	for f := int64(1); f <= maxFrequency; f++ {
		if tally[f] != 0 {
			s.frequencies = append(s.frequencies, f)
			s.counts = append(s.counts, tally[f])
		}
	}
	return s
}

// Merge returns a new histogram holding the union of a and b, with counts summed
// where frequencies coincide. Either argument may be nil.
func Merge(a, b *Sparse) *Sparse {
	if a == nil {
		a = &Sparse{}
	}
	if b == nil {
		b = &Sparse{}
	}
	out := &Sparse{
		frequencies: make([]int64, 0, len(a.frequencies)+len(b.frequencies)),
		counts:      make([]int64, 0, len(a.counts)+len(b.counts)),
	}
	i, j := 0, 0
	for i < len(a.frequencies) && j < len(b.frequencies) {
		fa, fb := a.frequencies[i], b.frequencies[j]
		switch {
		case fa < fb:
			out.frequencies = append(out.frequencies, fa)
			out.counts = append(out.counts, a.counts[i])
			i++
		case fb < fa:
			out.frequencies = append(out.frequencies, fb)
			out.counts = append(out.counts, b.counts[j])
			j++
		default:
			out.frequencies = append(out.frequencies, fa)
			out.counts = append(out.counts, a.counts[i]+b.counts[j])
			i++
			j++
		}
	}
	out.frequencies = append(out.frequencies, a.frequencies[i:]...)
	out.counts = append(out.counts, a.counts[i:]...)
	out.frequencies = append(out.frequencies, b.frequencies[j:]...)
	out.counts = append(out.counts, b.counts[j:]...)
	return out
}

// Len returns the number of distinct frequencies.
func (s *Sparse) Len() int {
	return len(s.frequencies)
}

// Frequency returns the i-th frequency in ascending order.
func (s *Sparse) Frequency(i int) int64 {
	return s.frequencies[i]
}

// Count returns the number of hashes with the i-th frequency.
func (s *Sparse) Count(i int) int64 {
	return s.counts[i]
}

// CountOf returns the number of hashes with exactly frequency f.
func (s *Sparse) CountOf(f int64) int64 {
	lo, hi := 0, len(s.frequencies)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.frequencies[mid] < f {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.frequencies) && s.frequencies[lo] == f {
		return s.counts[lo]
	}
	return 0
}

// All iterates (frequency, count) pairs in ascending frequency order.
func (s *Sparse) All() iter.Seq2[int64, int64] {
	return func(yield func(int64, int64) bool) {
		for i, f := range s.frequencies {
			if !yield(f, s.counts[i]) {
				return
			}
		}
	}
}

// MaxFrequency returns the largest recorded frequency, or 0 when empty.
func (s *Sparse) MaxFrequency() int64 {
	if len(s.frequencies) == 0 {
		return 0
	}
	return s.frequencies[len(s.frequencies)-1]
}

// TotalHashes returns the number of distinct hashes recorded.
func (s *Sparse) TotalHashes() int64 {
	var total int64
	for _, c := range s.counts {
		total += c
	}
	return total
}

// TotalOccurrences returns the sum of frequency*count over all entries.
func (s *Sparse) TotalOccurrences() int64 {
	var total int64
	for i, f := range s.frequencies {
		total += f * s.counts[i]
	}
	return total
}

// String renders one "frequency\tcount" line per entry.
func (s *Sparse) String() string {
	var sb strings.Builder
	for i, f := range s.frequencies {
		fmt.Fprintf(&sb, "%d\t%d\n", f, s.counts[i])
	}
	return sb.String()
}
