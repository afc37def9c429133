// Package resource bounds what index builds and persistence may consume.
//
// A Controller manages three resources:
//
//   - Memory: index sets reserve the planned bytes of all shards up front
//   - Workers: the number of concurrent freeze, save and load jobs
//   - IO: a token bucket on persistence writes
//
// # Memory
//
// Reserve never blocks. A reservation over the limit fails at once with
// ErrMemoryLimitExceeded, so a build is rejected before any large allocation.
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	r, err := rc.Reserve("16 shards", 16*report.Total)
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
// # Workers
//
//	done, err := rc.Job(ctx)
//	if err != nil {
//	    return err
//	}
//	defer done()
//
// All methods are safe on a nil *Controller, which imposes no limits.
package resource
