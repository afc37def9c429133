package index

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/histogram"
	"github.com/hupe1980/kmerindex/internal/bitvector"
	"github.com/hupe1980/kmerindex/internal/packed"
	"github.com/hupe1980/kmerindex/kmer"
)

// State is the build state of an index.
type State uint32

const (
	// StatePreAdd accepts adds. For a compressed index these only count.
	StatePreAdd State = iota
	// StateAdd is the storing pass of a compressed index.
	StateAdd
	// StateFrozen is the read-only, searchable state.
	StateFrozen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePreAdd:
		return "PreAdd"
	case StateAdd:
		return "Add"
	case StateFrozen:
		return "Frozen"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Index maps hashes to the values they were added with.
//
// An index is built by Add and Freeze calls and then searched. The simple
// strategy is frozen once. The compressed strategy takes every add twice: a
// counting pass, a Freeze that sizes its storage exactly, a storing pass with
// the same adds, and a final Freeze.
//
// Add and Freeze must not be called concurrently; an overlapping call fails
// with ErrConcurrentModification. Once frozen, all queries are safe for
// concurrent use.
type Index struct {
	opts   Options
	split  splitter
	filter *filter.Method
	logger *slog.Logger

	state    atomic.Uint32
	busy     atomic.Bool
	modCount atomic.Uint64

	// freezeHook, when set, runs between the rounds of the final Freeze.
	freezeHook func(round int)

	// Simple strategy: full hashes, split in words. hi is nil unless extended.
	lo []uint64
	hi []uint64

	// Compressed strategy: bucket boundaries, the low bits of each entry and,
	// during the storing pass, the next free slot of each bucket. lowsHi holds
	// the bits above 64 of the low part and is nil unless it is that wide.
	pointers []uint64
	lows     *packed.Array
	lowsHi   *packed.Array
	cursor   []uint64

	values *packed.Array
	valid  *bitvector.HashBitVector

	n        int64
	preAdded int64

	hist  *histogram.Sparse
	stats Stats
}

// Stats summarizes a frozen index.
type Stats struct {
	// Entries is the number of stored (hash, value) pairs.
	Entries int64
	// Hashes is the number of distinct stored hashes.
	Hashes int64
	// DiscardedEntries is the number of pairs dropped by the filter.
	DiscardedEntries int64
	// DiscardedHashes is the number of distinct hashes dropped by the filter.
	DiscardedHashes int64
	// MaxFrequency is the highest frequency observed before filtering.
	MaxFrequency int64
}

// New creates an index in the PreAdd state.
func New(optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	ix := &Index{
		opts:   opts,
		split:  newSplitter(opts.HashBits, opts.PointerBits),
		filter: opts.Filter.Clone(),
		logger: opts.Logger,
	}

	if opts.Compressed {
		// Counts per position live one slot up until the first Freeze turns
		// them into bucket starts.
		ix.pointers = make([]uint64, ix.split.buckets()+1)
		return ix, nil
	}

	ix.lo = make([]uint64, opts.Capacity)
	if opts.extended() {
		ix.hi = make([]uint64, opts.Capacity)
	}
	values, err := packed.New(opts.Capacity, opts.ValueBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	ix.values = values
	return ix, nil
}

// State returns the current build state.
func (ix *Index) State() State { return State(ix.state.Load()) }

// Options returns the normalized options the index was built with.
func (ix *Index) Options() Options { return ix.opts }

// HashBits returns the configured hash width.
func (ix *Index) HashBits() int { return ix.opts.HashBits }

// Capacity returns the configured capacity.
func (ix *Index) Capacity() int64 { return ix.opts.Capacity }

// Histogram returns the frequency histogram of the added hashes before
// filtering, or nil until the final Freeze has sorted them.
func (ix *Index) Histogram() *histogram.Sparse { return ix.hist }

// Len returns the number of entries stored so far. During the counting pass
// of a compressed index it returns the number of counted adds.
func (ix *Index) Len() int64 {
	if ix.opts.Compressed && ix.State() == StatePreAdd {
		return ix.preAdded
	}
	return ix.n
}

// Add adds a native hash with its value.
func (ix *Index) Add(hash, value uint64) error {
	return ix.AddExtended(kmer.FromUint64(hash), value)
}

// AddExtended adds a hash of up to 128 bits with its value.
func (ix *Index) AddExtended(hash kmer.Hash, value uint64) error {
	if !ix.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: add during add or freeze", ErrConcurrentModification)
	}
	defer ix.busy.Store(false)

	state := ix.State()
	if state == StateFrozen {
		return fmt.Errorf("%w: add to frozen index", ErrIllegalState)
	}
	if !hash.FitsIn(ix.opts.HashBits) {
		return fmt.Errorf("%w: hash %s wider than %d bits", ErrInvalidArgument, hash, ix.opts.HashBits)
	}
	if !packed.Fits(value, ix.opts.ValueBits) {
		return fmt.Errorf("%w: value %d wider than %d bits", ErrInvalidArgument, value, ix.opts.ValueBits)
	}

	switch {
	case !ix.opts.Compressed:
		if ix.n >= ix.opts.Capacity {
			return &CapacityError{Count: ix.n + 1, Capacity: ix.opts.Capacity}
		}
		ix.lo[ix.n] = hash.Lo
		if ix.hi != nil {
			ix.hi[ix.n] = hash.Hi
		}
		ix.values.Set(ix.n, value)
		ix.n++

	case state == StatePreAdd:
		if ix.preAdded >= ix.opts.Capacity {
			return &CapacityError{PreAdd: true, Count: ix.preAdded + 1, Capacity: ix.opts.Capacity}
		}
		ix.pointers[ix.split.position(hash)+1]++
		ix.preAdded++

	default:
		if ix.n >= ix.opts.Capacity {
			return &CapacityError{Count: ix.n + 1, Capacity: ix.opts.Capacity}
		}
		pos := ix.split.position(hash)
		slot := ix.cursor[pos]
		if slot >= ix.pointers[pos+1] {
			if ix.pointers[pos] == ix.pointers[pos+1] {
				return fmt.Errorf("%w: hash %s at position %d was never pre-added", ErrInconsistent, hash, pos)
			}
			return fmt.Errorf("%w: position %d holds more than its %d pre-added items",
				ErrInconsistent, pos, ix.pointers[pos+1]-ix.pointers[pos])
		}
		ix.setLow(int64(slot), ix.split.compress(hash))
		ix.values.Set(int64(slot), value)
		ix.cursor[pos]++
		ix.n++
	}

	ix.modCount.Add(1)
	return nil
}

// Freeze ends the current build phase.
//
// For a compressed index in PreAdd it sizes the storage and moves to Add.
// Otherwise it sorts, filters and compacts the entries and moves to Frozen.
func (ix *Index) Freeze() error {
	if !ix.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: freeze during add or freeze", ErrConcurrentModification)
	}
	defer ix.busy.Store(false)

	switch state := ix.State(); {
	case state == StateFrozen:
		return ErrClosedTwice
	case ix.opts.Compressed && state == StatePreAdd:
		return ix.startStoring()
	default:
		return ix.finish()
	}
}

// startStoring turns the per-position counts into bucket starts and allocates
// storage for exactly the counted entries.
func (ix *Index) startStoring() error {
	for p := 1; p < len(ix.pointers); p++ {
		ix.pointers[p] += ix.pointers[p-1]
	}

	lows, lowsHi, err := ix.newLows(ix.preAdded)
	if err != nil {
		return err
	}
	values, err := packed.New(ix.preAdded, ix.opts.ValueBits)
	if err != nil {
		return err
	}
	ix.lows, ix.lowsHi, ix.values = lows, lowsHi, values
	ix.cursor = slices.Clone(ix.pointers[:len(ix.pointers)-1])

	ix.state.Store(uint32(StateAdd))
	ix.logger.Debug("index counting pass complete", "entries", ix.preAdded, "buckets", len(ix.cursor))
	return nil
}

func (ix *Index) hook(round int) {
	if ix.freezeHook != nil {
		ix.freezeHook(round)
	}
}

// newLows allocates packed storage for n compressed hash parts.
func (ix *Index) newLows(n int64) (lo, hi *packed.Array, err error) {
	loBits, hiBits := ix.split.widths()
	if lo, err = packed.New(n, loBits); err != nil {
		return nil, nil, err
	}
	if hiBits > 0 {
		if hi, err = packed.New(n, hiBits); err != nil {
			return nil, nil, err
		}
	}
	return lo, hi, nil
}

// lowAt returns the compressed part of the hash stored at slot i.
func (ix *Index) lowAt(i int64) kmer.Hash {
	h := kmer.Hash{Lo: ix.lows.Get(i)}
	if ix.lowsHi != nil {
		h.Hi = ix.lowsHi.Get(i)
	}
	return h
}

func (ix *Index) setLow(i int64, h kmer.Hash) {
	ix.lows.Set(i, h.Lo)
	if ix.lowsHi != nil {
		ix.lowsHi.Set(i, h.Hi)
	}
}

// finish is the final freeze. Nothing the index holds changes unless every
// step succeeds.
func (ix *Index) finish() error {
	start := ix.modCount.Load()

	if ix.opts.Compressed && ix.n != ix.preAdded {
		return fmt.Errorf("%w: %d of %d pre-added items were added", ErrInconsistent, ix.n, ix.preAdded)
	}

	ix.hook(0)
	sorted := ix.sortEntries()
	ix.hook(1)

	var (
		freqs   []int64
		maxFreq int64
	)
	sorted.runs(ix, func(_, begin, end int64, _ kmer.Hash) {
		freqs = append(freqs, end-begin)
		maxFreq = max(maxFreq, end-begin)
	})
	ix.hist = histogram.FromIndividualFrequencies(freqs, maxFreq)

	if err := ix.filter.Initialize(ix); err != nil {
		ix.hist = nil
		return fmt.Errorf("initialize filter %s: %w", ix.filter, err)
	}

	f, err := ix.assemble(sorted, maxFreq)
	if err != nil {
		ix.hist = nil
		return err
	}
	ix.hook(2)

	if ix.modCount.Load() != start {
		ix.hist = nil
		return fmt.Errorf("%w: index modified during freeze", ErrConcurrentModification)
	}
	ix.commit(f)
	ix.state.Store(uint32(StateFrozen))

	attrs := []any{
		"entries", ix.stats.Entries,
		"hashes", ix.stats.Hashes,
		"discarded", ix.stats.DiscardedEntries,
		"filter", ix.filter.String(),
	}
	if cutoff, ok := ix.filter.Cutoff(); ok {
		attrs = append(attrs, "cutoff", cutoff)
	}
	ix.logger.Debug("index frozen", attrs...)
	return nil
}

// frozenStorage is the storage assembled by the final Freeze.
type frozenStorage struct {
	lo, hi   []uint64
	pointers []uint64
	lows     *packed.Array
	lowsHi   *packed.Array
	values   *packed.Array
	valid    *bitvector.HashBitVector
	stats    Stats
}

// assemble keeps the runs the filter accepts, compacts them into fresh
// storage and fills the valid-slot bit vector. It writes only to sorted and
// to the storage it returns.
func (ix *Index) assemble(sorted *sortedEntries, maxFreq int64) (*frozenStorage, error) {
	f := &frozenStorage{}
	if ix.opts.BitVectorBits > 0 {
		handle, err := bitvector.NewHashBitHandle(min(ix.opts.HashBits, bitvector.MaxHashBits), ix.opts.BitVectorBits)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		if f.valid, err = handle.Create(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	if ix.opts.Compressed {
		f.pointers = make([]uint64, len(sorted.starts))
	}

	buckets := int64(len(sorted.starts) - 1)
	var (
		w       int64
		next    int64
		kept    int64
		dropped int64
	)
	// Empty buckets before p start where the compacted data currently ends.
	advance := func(p int64) {
		for ; next <= p && f.pointers != nil; next++ {
			f.pointers[next] = uint64(w)
		}
	}

	sorted.runs(ix, func(p, begin, end int64, h kmer.Hash) {
		advance(p)
		if !ix.filter.Keep(h, end-begin) {
			dropped++
			return
		}
		kept++
		for i := begin; i < end; i++ {
			sorted.lo[w] = sorted.lo[i]
			if sorted.hi != nil {
				sorted.hi[w] = sorted.hi[i]
			}
			sorted.vals[w] = sorted.vals[i]
			w++
		}
		if f.valid != nil {
			f.valid.Set(ix.bitKey(h))
		}
	})
	advance(buckets)

	values, err := packed.New(w, ix.opts.ValueBits)
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < w; i++ {
		values.Set(i, sorted.vals[i])
	}
	f.values = values

	if ix.opts.Compressed {
		if f.lows, f.lowsHi, err = ix.newLows(w); err != nil {
			return nil, err
		}
		for i := int64(0); i < w; i++ {
			f.lows.Set(i, sorted.lo[i])
			if f.lowsHi != nil {
				f.lowsHi.Set(i, sorted.hi[i])
			}
		}
	} else {
		f.lo = shrink(sorted.lo, w)
		if sorted.hi != nil {
			f.hi = shrink(sorted.hi, w)
		}
	}

	f.stats = Stats{
		Entries:          w,
		Hashes:           kept,
		DiscardedEntries: ix.n - w,
		DiscardedHashes:  dropped,
		MaxFrequency:     maxFreq,
	}
	return f, nil
}

// commit replaces the build storage with the assembled storage.
func (ix *Index) commit(f *frozenStorage) {
	ix.lo, ix.hi = f.lo, f.hi
	if ix.opts.Compressed {
		ix.pointers = f.pointers
		ix.cursor = nil
	}
	ix.lows, ix.lowsHi = f.lows, f.lowsHi
	ix.values = f.values
	ix.valid = f.valid
	ix.stats = f.stats
	ix.n = f.stats.Entries
}

// bitKey maps a hash to the 64-bit key the valid-slot vector is addressed by:
// the hash itself, or its top 64 bits when it is wider.
func (ix *Index) bitKey(h kmer.Hash) uint64 {
	if ix.opts.HashBits <= 64 {
		return h.Lo
	}
	return h.Shr(uint(ix.opts.HashBits - 64)).Lo
}

func shrink(s []uint64, n int64) []uint64 {
	if int64(cap(s)) == n {
		return s[:n]
	}
	out := make([]uint64, n)
	copy(out, s)
	return out
}
