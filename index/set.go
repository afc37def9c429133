package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kmerindex/internal/resource"
	"github.com/hupe1980/kmerindex/kmer"
)

// Set is a fixed, ordered collection of independent index shards that are
// built and frozen together.
type Set struct {
	shards   []*Index
	rc       *resource.Controller
	reserved *resource.Reservation
	logger   *slog.Logger
}

// NewSet creates n shards with identical options, using min(threads, n)
// workers. Each shard logs with a shard attribute. With a controller, the planned memory of every shard is reserved
// first and the call fails fast with resource.ErrMemoryLimitExceeded.
func NewSet(ctx context.Context, n, threads int, optFns ...func(o *Options)) (*Set, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: set of %d shards", ErrInvalidArgument, n)
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	s := &Set{
		shards: make([]*Index, n),
		rc:     opts.Controller,
		logger: opts.Logger,
	}

	if s.rc != nil {
		report, err := MemoryFor(optFns...)
		if err != nil {
			return nil, err
		}
		r, err := s.rc.Reserve(fmt.Sprintf("%d shards", n), report.Total*int64(n))
		if err != nil {
			return nil, err
		}
		s.reserved = r
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(max(threads, 1), n))
	for k := range s.shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shardOpts := append(slices.Clip(optFns), func(o *Options) {
				o.Logger = opts.Logger.With("shard", k)
			})
			shard, err := New(shardOpts...)
			if err != nil {
				return fmt.Errorf("shard %d: %w", k, err)
			}
			s.shards[k] = shard
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// SetOf groups existing indexes, such as loaded shards, into a set.
func SetOf(logger *slog.Logger, shards ...*Index) *Set {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Set{shards: shards, logger: logger}
}

// Len returns the number of shards.
func (s *Set) Len() int { return len(s.shards) }

// Shard returns shard i.
func (s *Set) Shard(i int) *Index { return s.shards[i] }

// Freeze calls Freeze on every shard with min(threads, n) workers that take
// shards in order. It returns the first error and cancels the jobs not yet
// started.
func (s *Set) Freeze(ctx context.Context, threads int) error {
	workers := min(max(threads, 1), len(s.shards))
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for k := range s.shards {
			select {
			case jobs <- k:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for k := range jobs {
				if err := s.freezeShard(gctx, k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Set) freezeShard(ctx context.Context, k int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done, err := s.rc.Job(ctx)
	if err != nil {
		return err
	}
	defer done()

	s.logger.Info("start freeze job", "job", k)
	if err := s.shards[k].Freeze(); err != nil {
		return fmt.Errorf("freeze shard %d: %w", k, err)
	}
	return nil
}

// Search calls fn with every (shard, value) stored for hash, shard by shard,
// until fn returns false.
func (s *Set) Search(hash uint64, fn func(shard int, value uint64) bool) error {
	return s.SearchExtended(kmer.FromUint64(hash), fn)
}

// SearchExtended is Search for hashes of up to 128 bits.
func (s *Set) SearchExtended(hash kmer.Hash, fn func(shard int, value uint64) bool) error {
	stop := false
	for k, shard := range s.shards {
		err := shard.SearchExtended(hash, func(v uint64) bool {
			stop = !fn(k, v)
			return !stop
		})
		if err != nil {
			return fmt.Errorf("search shard %d: %w", k, err)
		}
		if stop {
			return nil
		}
	}
	return nil
}

// Close releases the memory reserved with the controller. The shards stay usable.
func (s *Set) Close() {
	s.reserved.Release()
}
