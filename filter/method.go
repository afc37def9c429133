package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/kmerindex/histogram"
	"github.com/hupe1980/kmerindex/internal/bitvector"
	"github.com/hupe1980/kmerindex/kmer"
)

var (
	// ErrInvalidFilter is returned for filter parameters that can never be satisfied.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrWidthMismatch is returned when a blacklist's expanded width differs from
	// the hash width of the index it filters.
	ErrWidthMismatch = errors.New("blacklist width mismatch")
)

// maxPrefilterBits bounds the quick-reject bit vector of a blacklist to 128 KiB.
const maxPrefilterBits = 20

// Kind identifies a filter variant.
type Kind uint8

const (
	// KindUnfiltered keeps every hash.
	KindUnfiltered Kind = iota
	// KindFixed keeps hashes whose frequency is at most a fixed threshold.
	KindFixed
	// KindProportional keeps hashes whose frequency is at most a cutoff derived
	// from the index histogram.
	KindProportional
	// KindBlacklist drops hashes that are members of an explicit set.
	KindBlacklist
	// KindAll keeps a hash only when every sub-filter keeps it.
	KindAll
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnfiltered:
		return "Unfiltered"
	case KindFixed:
		return "Fixed"
	case KindProportional:
		return "Proportional"
	case KindBlacklist:
		return "Blacklist"
	case KindAll:
		return "All"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Context is what a filter may inspect while it is initialized. An index
// passes itself once its entries are sorted and its histogram is built.
type Context interface {
	// HashBits returns the width of the hashes being filtered.
	HashBits() int
	// Histogram returns the frequency histogram of the hashes, before filtering.
	Histogram() *histogram.Sparse
}

// Method is a construction-time filter policy.
//
// Methods are closed over the kinds above. Initialize may mutate a Method, so an
// index works on its own Clone. Keep is safe for concurrent use once
// Initialize has returned.
type Method struct {
	kind Kind

	// Fixed, and Proportional after Initialize.
	threshold int64

	// Proportional.
	target        float64
	declaredTotal int64
	minFrequency  int64
	initialized   bool

	// Blacklist. Membership is immutable once built and shared between clones.
	entries   []uint64
	entryBits int
	repeat    int
	width     int
	prefilter *bitvector.HashBitVector
	members   *roaring64.Bitmap

	// All.
	subs []*Method
}

// Unfiltered returns a filter that keeps every hash.
func Unfiltered() *Method {
	return &Method{kind: KindUnfiltered}
}

// Fixed returns a filter that keeps a hash iff its frequency is at most threshold.
func Fixed(threshold int64) *Method {
	return &Method{kind: KindFixed, threshold: threshold}
}

// Proportional returns a filter that, once initialized, keeps a hash iff its
// frequency is at most a cutoff chosen so that the retained occurrences stay at
// or above targetProportion of the total.
//
// declaredTotal is the total number of hash occurrences the proportion refers
// to; 0 means the total observed in the histogram. The cutoff is never lower
// than minFrequency.
func Proportional(targetProportion float64, declaredTotal, minFrequency int64) (*Method, error) {
	if targetProportion < 0 || targetProportion > 1 {
		return nil, fmt.Errorf("%w: target proportion %v outside [0,1]", ErrInvalidFilter, targetProportion)
	}
	if declaredTotal < 0 {
		return nil, fmt.Errorf("%w: negative declared total %d", ErrInvalidFilter, declaredTotal)
	}
	return &Method{
		kind:          KindProportional,
		target:        targetProportion,
		declaredTotal: declaredTotal,
		minFrequency:  minFrequency,
	}, nil
}

// Blacklist returns a filter that drops exactly the given hashes.
//
// Each entry is hashBits wide. When an index works at a multiple of the
// blacklist's k-mer length, repeatMultiplier > 1 tiles every entry that many
// times, so an entry e matches the hash e|e|...|e of width
// hashBits*repeatMultiplier. The tiled width must not exceed 64 bits.
func Blacklist(hashes []uint64, hashBits, repeatMultiplier int) (*Method, error) {
	if repeatMultiplier < 1 {
		return nil, fmt.Errorf("%w: repeat multiplier %d", ErrInvalidFilter, repeatMultiplier)
	}
	width := hashBits * repeatMultiplier
	if hashBits < 1 || width > 64 {
		return nil, fmt.Errorf("%w: blacklist width %d x %d", ErrInvalidFilter, hashBits, repeatMultiplier)
	}

	handle, err := bitvector.NewHashBitHandle(width, min(width, maxPrefilterBits))
	if err != nil {
		return nil, err
	}
	prefilter, err := handle.Create()
	if err != nil {
		return nil, err
	}
	members := roaring64.New()

	mask := uint64(1)<<uint(hashBits) - 1
	if hashBits == 64 {
		mask = ^uint64(0)
	}
	for _, e := range hashes {
		if e&^mask != 0 {
			return nil, fmt.Errorf("%w: entry %#x wider than %d bits", ErrInvalidFilter, e, hashBits)
		}
		h := tile(e, hashBits, repeatMultiplier)
		prefilter.Set(h)
		members.Add(h)
	}
	members.RunOptimize()

	return &Method{
		kind:      KindBlacklist,
		entries:   hashes,
		entryBits: hashBits,
		repeat:    repeatMultiplier,
		width:     width,
		prefilter: prefilter,
		members:   members,
	}, nil
}

func tile(e uint64, bits, repeat int) uint64 {
	h := e
	for i := 1; i < repeat; i++ {
		h = h<<uint(bits) | e
	}
	return h
}

// All returns a filter that keeps a hash iff every sub-filter keeps it.
// With no sub-filters it keeps everything.
func All(subs ...*Method) *Method {
	return &Method{kind: KindAll, subs: subs}
}

// Kind returns the variant of m.
func (m *Method) Kind() Kind { return m.kind }

// Cutoff returns the frequency threshold of a Fixed filter, or of an
// initialized Proportional filter. ok is false otherwise.
func (m *Method) Cutoff() (cutoff int64, ok bool) {
	switch m.kind {
	case KindFixed:
		return m.threshold, true
	case KindProportional:
		return m.threshold, m.initialized
	default:
		return 0, false
	}
}

// Clone returns a copy of m that can be initialized independently.
func (m *Method) Clone() *Method {
	if m == nil {
		return nil
	}
	c := *m
	if m.subs != nil {
		c.subs = make([]*Method, len(m.subs))
		for i, s := range m.subs {
			c.subs[i] = s.Clone()
		}
	}
	return &c
}

// Initialize prepares m for the index described by ctx. A nil ctx is allowed
// for filters that need no context.
func (m *Method) Initialize(ctx Context) error {
	switch m.kind {
	case KindProportional:
		if ctx == nil {
			return fmt.Errorf("%w: proportional filter needs a histogram", ErrInvalidFilter)
		}
		m.threshold = proportionalCutoff(ctx.Histogram(), m.target, m.declaredTotal, m.minFrequency)
		m.initialized = true
	case KindBlacklist:
		if ctx != nil && ctx.HashBits() != m.width {
			return fmt.Errorf("%w: blacklist is %d bits, index hashes are %d bits", ErrWidthMismatch, m.width, ctx.HashBits())
		}
	case KindAll:
		for _, s := range m.subs {
			if err := s.Initialize(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Keep reports whether a hash seen frequency times should be indexed.
func (m *Method) Keep(hash kmer.Hash, frequency int64) bool {
	switch m.kind {
	case KindFixed:
		return frequency <= m.threshold
	case KindProportional:
		return !m.initialized || frequency <= m.threshold
	case KindBlacklist:
		if !hash.IsNative() || !m.prefilter.Get(hash.Lo) {
			return true
		}
		return !m.members.Contains(hash.Lo)
	case KindAll:
		for _, s := range m.subs {
			if !s.Keep(hash, frequency) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// proportionalCutoff walks frequencies from the highest down, discarding all
// hashes of a frequency while the retained occurrences stay at or above
// target*total. The cutoff is one below the last discarded frequency.
func proportionalCutoff(h *histogram.Sparse, target float64, declaredTotal, minFrequency int64) int64 {
	if h == nil || h.Len() == 0 {
		return minFrequency
	}
	total := declaredTotal
	if total == 0 {
		total = h.TotalOccurrences()
	}
	floor := target * float64(total)

	cutoff := h.MaxFrequency()
	var discarded int64
	for i := h.Len() - 1; i >= 0; i-- {
		f := h.Frequency(i)
		next := discarded + f*h.Count(i)
		if float64(total-next) < floor {
			break
		}
		discarded = next
		cutoff = f - 1
	}
	return max(cutoff, minFrequency)
}

// String returns a human-readable description of m.
func (m *Method) String() string {
	switch m.kind {
	case KindFixed:
		return fmt.Sprintf("Fixed(%d)", m.threshold)
	case KindProportional:
		if m.initialized {
			return fmt.Sprintf("Proportional(%g, cutoff=%d)", m.target, m.threshold)
		}
		return fmt.Sprintf("Proportional(%g)", m.target)
	case KindBlacklist:
		return fmt.Sprintf("Blacklist(%d entries, %d bits x %d)", len(m.entries), m.entryBits, m.repeat)
	case KindAll:
		parts := make([]string, len(m.subs))
		for i, s := range m.subs {
			parts[i] = s.String()
		}
		return "All(" + strings.Join(parts, ", ") + ")"
	default:
		return "Unfiltered"
	}
}
