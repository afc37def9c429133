package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for reserved index memory.
	// If 0, reservations are only tracked.
	MemoryLimitBytes int64

	// MaxWorkers is the maximum number of concurrent freeze, save or load jobs.
	// If 0, defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec is the maximum persistence throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller bounds the memory, workers and IO used to build and persist indexes.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	reserved atomic.Int64
	workers  *semaphore.Weighted
	busy     atomic.Int64
	io       *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Reservation is memory held against the limit until Release.
type Reservation struct {
	c     *Controller
	bytes atomic.Int64
}

// Bytes returns the reserved bytes, or 0 once released.
func (r *Reservation) Bytes() int64 {
	if r == nil {
		return 0
	}
	return r.bytes.Load()
}

// Release returns the memory to the controller. Calling it again is a no-op.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	if n := r.bytes.Swap(0); n > 0 {
		r.c.reserved.Add(-n)
	}
}

// Reserve takes bytes for what without blocking. Over the limit it fails at
// once with ErrMemoryLimitExceeded, before anything is allocated. A nil
// controller returns a nil Reservation, which is safe to release.
func (c *Controller) Reserve(what string, bytes int64) (*Reservation, error) {
	if c == nil {
		return nil, nil
	}
	limit := c.cfg.MemoryLimitBytes
	for {
		used := c.reserved.Load()
		if limit > 0 && used+bytes > limit {
			return nil, fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
				ErrMemoryLimitExceeded, what, bytes, used, limit)
		}
		if c.reserved.CompareAndSwap(used, used+bytes) {
			break
		}
	}
	r := &Reservation{c: c}
	r.bytes.Store(bytes)
	return r, nil
}

// MemoryUsage returns the reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// Job waits for a worker slot and returns the func that frees it.
func (c *Controller) Job(ctx context.Context) (done func(), err error) {
	if c == nil {
		return func() {}, nil
	}
	if err := c.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	c.busy.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			c.busy.Add(-1)
			c.workers.Release(1)
		}
	}, nil
}

// BusyWorkers returns the number of jobs holding a slot.
func (c *Controller) BusyWorkers() int64 {
	if c == nil {
		return 0
	}
	return c.busy.Load()
}

// WaitIO waits until the IO limit allows n bytes. Requests larger than the
// limiter burst are split into burst-sized waits.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := c.io.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
