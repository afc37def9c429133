package index

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/internal/resource"
	"github.com/hupe1980/kmerindex/kmer"
)

const (
	// MaxPointerBits is the widest initial-pointer table a compressed index may use.
	MaxPointerBits = 32

	// defaultPointerBits is the pointer width chosen when none is configured.
	defaultPointerBits = 20

	// maxBitVectorBits is the widest valid-slot bit vector an index may allocate.
	maxBitVectorBits = 32
)

// Options contains configuration options for an index.
type Options struct {
	// Capacity is the maximum number of entries. It must be >= 0.
	Capacity int64

	// HashBits is the width of the hashes, in [1, 128]. Widths above 64 require
	// AddExtended and SearchExtended for hashes that do not fit a single word.
	HashBits int

	// ValueBits is the width of the stored values, in [0, 64].
	ValueBits int

	// Compressed selects the two-phase compressed strategy: a counting pass,
	// Freeze, a storing pass with identical adds, and a final Freeze.
	Compressed bool

	// PointerBits is the number of leading hash bits that select a bucket of a
	// compressed index. 0 picks min(HashBits, 20). The initial-pointer table
	// holds 2^PointerBits+1 words whatever the capacity. Ignored by the simple
	// strategy.
	PointerBits int

	// BitVectorBits sizes the valid-slot bit vector used to reject absent hashes
	// without searching. 0 disables it.
	BitVectorBits int

	// Threads bounds the workers used to sort entries on Freeze.
	Threads int

	// Filter decides which hashes survive Freeze. nil keeps everything.
	// Each index initializes its own clone, so one Method can be shared.
	Filter *filter.Method

	// Logger receives diagnostics. nil discards them.
	Logger *slog.Logger

	// Controller, when set, makes NewSet reserve the planned memory of every
	// shard and bounds its freeze workers. nil imposes no limits.
	Controller *resource.Controller
}

// WithController sets the resource controller consulted by NewSet.
func WithController(c *resource.Controller) func(o *Options) {
	return func(o *Options) {
		o.Controller = c
	}
}

// DefaultOptions contains the default configuration options for an index.
var DefaultOptions = Options{
	HashBits:  64,
	ValueBits: 64,
	Threads:   1,
}

// normalize fills derived defaults and validates o.
func (o *Options) normalize() error {
	if o.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d", ErrInvalidArgument, o.Capacity)
	}
	if o.HashBits < 1 || o.HashBits > kmer.MaxBits {
		return fmt.Errorf("%w: hash bits %d outside [1,%d]", ErrInvalidArgument, o.HashBits, kmer.MaxBits)
	}
	if o.ValueBits < 0 || o.ValueBits > 64 {
		return fmt.Errorf("%w: value bits %d outside [0,64]", ErrInvalidArgument, o.ValueBits)
	}
	if o.BitVectorBits < 0 || o.BitVectorBits > maxBitVectorBits {
		return fmt.Errorf("%w: bit vector bits %d outside [0,%d]", ErrInvalidArgument, o.BitVectorBits, maxBitVectorBits)
	}
	if o.Threads < 1 {
		o.Threads = 1
	}
	if o.Filter == nil {
		o.Filter = filter.Unfiltered()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if !o.Compressed {
		o.PointerBits = 0
		return nil
	}
	if o.PointerBits == 0 {
		o.PointerBits = min(o.HashBits, defaultPointerBits)
	}
	if o.PointerBits < 0 || o.PointerBits > min(o.HashBits, MaxPointerBits) {
		return fmt.Errorf("%w: pointer bits %d outside [0,%d]", ErrInvalidArgument, o.PointerBits, min(o.HashBits, MaxPointerBits))
	}
	return nil
}

// extended reports whether hashes may need two words.
func (o *Options) extended() bool {
	return o.HashBits > 64
}
