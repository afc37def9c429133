package kmerindex

// This file implements the fluent builder APIs for indexes and index sets.
// Builders are immutable - each method returns a new builder with the updated configuration.

import (
	"context"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/index"
	"github.com/hupe1980/kmerindex/internal/resource"
)

// Controller bounds the memory, workers and IO of builds and persistence.
type Controller = resource.Controller

// ResourceConfig holds the limits of a Controller.
type ResourceConfig = resource.Config

// NewController creates a resource controller.
func NewController(cfg ResourceConfig) *Controller {
	return resource.NewController(cfg)
}

// config is the part shared by all builders.
type config struct {
	capacity      int64
	hashBits      int
	valueBits     int
	pointerBits   int
	bitVectorBits int
	threads       int
	filter        *filter.Method
	logger        *Logger
}

func newConfig(capacity int64, hashBits int) config {
	return config{
		capacity:  capacity,
		hashBits:  hashBits,
		valueBits: index.DefaultOptions.ValueBits,
		threads:   index.DefaultOptions.Threads,
	}
}

func (c config) options(compressed bool) func(o *index.Options) {
	return func(o *index.Options) {
		o.Capacity = c.capacity
		o.HashBits = c.hashBits
		o.ValueBits = c.valueBits
		o.Compressed = compressed
		o.PointerBits = c.pointerBits
		o.BitVectorBits = c.bitVectorBits
		o.Threads = c.threads
		o.Filter = c.filter
		o.Logger = c.logger.slogger()
	}
}

func (c config) build(kind string, compressed bool) (*index.Index, error) {
	opts := c.options(compressed)
	ix, err := index.New(opts)
	var report index.MemoryReport
	if err == nil {
		report = ix.Memory()
	}
	c.logger.LogBuild(context.Background(), kind, c.capacity, report, err)
	return ix, translateError(err)
}

// =============================================================================
// Simple Builder (Immutable)
// =============================================================================

// Simple creates a builder for a simple index of capacity entries and
// hashBits-bit hashes. A simple index is built in one pass and frozen once.
//
// Example:
//
//	ix, err := kmerindex.Simple(1<<20, 32).
//	    ValueBits(32).
//	    BitVectorBits(24).
//	    FixedFilter(500).
//	    Build()
func Simple(capacity int64, hashBits int) SimpleBuilder {
	return SimpleBuilder{c: newConfig(capacity, hashBits)}
}

// SimpleBuilder is an immutable fluent builder for simple indexes.
type SimpleBuilder struct {
	c config
}

// ValueBits sets the width of stored values. Default: 64.
func (b SimpleBuilder) ValueBits(n int) SimpleBuilder {
	b.c.valueBits = n
	return b
}

// BitVectorBits sizes the valid-slot bit vector that rejects absent hashes
// without searching. Default: 0 (disabled).
func (b SimpleBuilder) BitVectorBits(n int) SimpleBuilder {
	b.c.bitVectorBits = n
	return b
}

// Threads sets the number of workers used to sort on Freeze. Default: 1.
func (b SimpleBuilder) Threads(n int) SimpleBuilder {
	b.c.threads = n
	return b
}

// Filter sets the filter applied on Freeze.
func (b SimpleBuilder) Filter(m *filter.Method) SimpleBuilder {
	b.c.filter = m
	return b
}

// FixedFilter keeps only hashes seen at most threshold times.
func (b SimpleBuilder) FixedFilter(threshold int64) SimpleBuilder {
	return b.Filter(filter.Fixed(threshold))
}

// Logger sets the structured logger.
func (b SimpleBuilder) Logger(l *Logger) SimpleBuilder {
	b.c.logger = l
	return b
}

// Build creates the index.
func (b SimpleBuilder) Build() (*index.Index, error) {
	return b.c.build("simple", false)
}

// MustBuild creates the index and panics on error.
func (b SimpleBuilder) MustBuild() *index.Index {
	ix, err := b.Build()
	if err != nil {
		panic(err)
	}
	return ix
}

// MemoryFor returns the memory the index would hold at full capacity.
func (b SimpleBuilder) MemoryFor() (index.MemoryReport, error) {
	r, err := index.MemoryFor(b.c.options(false))
	return r, translateError(err)
}

// =============================================================================
// Compressed Builder (Immutable)
// =============================================================================

// Compressed creates a builder for a compressed index of capacity entries and
// hashBits-bit hashes. Every add is made twice: a counting pass, Freeze, a
// storing pass and a final Freeze.
//
// Example:
//
//	ix, err := kmerindex.Compressed(1<<24, 48).
//	    PointerBits(24).
//	    ValueBits(32).
//	    Build()
func Compressed(capacity int64, hashBits int) CompressedBuilder {
	return CompressedBuilder{c: newConfig(capacity, hashBits)}
}

// CompressedBuilder is an immutable fluent builder for compressed indexes.
type CompressedBuilder struct {
	c config
}

// PointerBits sets the number of leading hash bits that select a bucket.
// Default: min(hashBits, 20). The pointer table holds 2^n+1 words.
func (b CompressedBuilder) PointerBits(n int) CompressedBuilder {
	b.c.pointerBits = n
	return b
}

// ValueBits sets the width of stored values. Default: 64.
func (b CompressedBuilder) ValueBits(n int) CompressedBuilder {
	b.c.valueBits = n
	return b
}

// BitVectorBits sizes the valid-slot bit vector. Default: 0 (disabled).
func (b CompressedBuilder) BitVectorBits(n int) CompressedBuilder {
	b.c.bitVectorBits = n
	return b
}

// Threads sets the number of workers used to sort on Freeze. Default: 1.
func (b CompressedBuilder) Threads(n int) CompressedBuilder {
	b.c.threads = n
	return b
}

// Filter sets the filter applied on the final Freeze.
func (b CompressedBuilder) Filter(m *filter.Method) CompressedBuilder {
	b.c.filter = m
	return b
}

// FixedFilter keeps only hashes seen at most threshold times.
func (b CompressedBuilder) FixedFilter(threshold int64) CompressedBuilder {
	return b.Filter(filter.Fixed(threshold))
}

// Logger sets the structured logger.
func (b CompressedBuilder) Logger(l *Logger) CompressedBuilder {
	b.c.logger = l
	return b
}

// Build creates the index.
func (b CompressedBuilder) Build() (*index.Index, error) {
	return b.c.build("compressed", true)
}

// MustBuild creates the index and panics on error.
func (b CompressedBuilder) MustBuild() *index.Index {
	ix, err := b.Build()
	if err != nil {
		panic(err)
	}
	return ix
}

// MemoryFor returns the memory the index would hold at full capacity.
func (b CompressedBuilder) MemoryFor() (index.MemoryReport, error) {
	r, err := index.MemoryFor(b.c.options(true))
	return r, translateError(err)
}

// =============================================================================
// Sharded Builder (Immutable)
// =============================================================================

// Sharded creates a builder for a set of shards indexes with identical
// configuration, each of capacity entries.
//
// Example:
//
//	set, err := kmerindex.Sharded(16, 1<<22, 32).
//	    Compressed(true).
//	    Threads(8).
//	    Controller(rc).
//	    Build(ctx)
func Sharded(shards int, capacity int64, hashBits int) ShardedBuilder {
	return ShardedBuilder{shards: shards, c: newConfig(capacity, hashBits)}
}

// ShardedBuilder is an immutable fluent builder for index sets.
type ShardedBuilder struct {
	c          config
	shards     int
	compressed bool
	controller *Controller
}

// Compressed selects the compressed strategy for every shard.
func (b ShardedBuilder) Compressed(enabled bool) ShardedBuilder {
	b.compressed = enabled
	return b
}

// PointerBits sets the bucket width of compressed shards.
func (b ShardedBuilder) PointerBits(n int) ShardedBuilder {
	b.c.pointerBits = n
	return b
}

// ValueBits sets the width of stored values. Default: 64.
func (b ShardedBuilder) ValueBits(n int) ShardedBuilder {
	b.c.valueBits = n
	return b
}

// BitVectorBits sizes the valid-slot bit vector of every shard.
func (b ShardedBuilder) BitVectorBits(n int) ShardedBuilder {
	b.c.bitVectorBits = n
	return b
}

// Threads sets the number of workers that construct the shards, and the sort
// workers of each shard. Default: 1.
func (b ShardedBuilder) Threads(n int) ShardedBuilder {
	b.c.threads = n
	return b
}

// Filter sets the filter every shard applies on Freeze. Each shard
// initializes its own copy.
func (b ShardedBuilder) Filter(m *filter.Method) ShardedBuilder {
	b.c.filter = m
	return b
}

// FixedFilter keeps only hashes seen at most threshold times.
func (b ShardedBuilder) FixedFilter(threshold int64) ShardedBuilder {
	return b.Filter(filter.Fixed(threshold))
}

// Controller reserves the memory of all shards up front and bounds the
// freeze workers.
func (b ShardedBuilder) Controller(c *Controller) ShardedBuilder {
	b.controller = c
	return b
}

// Logger sets the structured logger.
func (b ShardedBuilder) Logger(l *Logger) ShardedBuilder {
	b.c.logger = l
	return b
}

// Build creates the set.
func (b ShardedBuilder) Build(ctx context.Context) (*index.Set, error) {
	set, err := index.NewSet(ctx, b.shards, b.c.threads, b.c.options(b.compressed), index.WithController(b.controller))

	var report index.MemoryReport
	if err == nil {
		report, err = index.MemoryFor(b.c.options(b.compressed))
		report.Total *= int64(b.shards)
	}
	b.c.logger.LogBuild(ctx, "sharded", b.c.capacity*int64(b.shards), report, err)
	return set, translateError(err)
}

// =============================================================================
// Filters
// =============================================================================

// ProportionalFilter returns a filter that keeps at least target of all
// occurrences, dropping the most frequent hashes first.
func ProportionalFilter(target float64, minFrequency int64) (*filter.Method, error) {
	m, err := filter.Proportional(target, 0, minFrequency)
	return m, translateError(err)
}

// LoadBlacklistFilter reads the blacklist for wordSize-mers from store and
// returns a filter that drops them. Entries counted below minCount are
// ignored. repeat tiles each entry for indexes over concatenated words: the
// index hash width must be 2*wordSize*repeat.
func LoadBlacklistFilter(ctx context.Context, store blobstore.Store, wordSize int, minCount int64, repeat int, l *Logger) (*filter.Method, error) {
	hashes, err := filter.LoadBlacklist(ctx, store, wordSize, minCount, l.WithWordSize(wordSize).slogger())
	if err != nil {
		l.LogBlacklist(ctx, wordSize, 0, err)
		return nil, translateError(err)
	}
	m, err := filter.Blacklist(hashes, 2*wordSize, repeat)
	l.LogBlacklist(ctx, wordSize, len(hashes), err)
	return m, translateError(err)
}
