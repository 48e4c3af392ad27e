// Package workers runs independent jobs on a bounded set of goroutines.
package workers

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"
)

// fallbackWorkers is used when the CPU count cannot be determined.
const fallbackWorkers = 10

// WorkerPool bounds the number of goroutines used for parallel work.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of
// workers. numWorkers ≤ 0 selects DefaultWorkers().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// Size returns the maximum number of concurrent workers.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// DefaultWorkers returns the logical CPU count, or 10 when it is unknown.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return fallbackWorkers
	}
	return n
}

// Map runs fn on every item using at most wp.Size() goroutines and returns
// the results in input order.
//
// The first error cancels the context passed to the remaining jobs, stops
// scheduling new ones and is returned. Cancellation of ctx is reported as
// ctx.Err().
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	workers := wp.numWorkers
	if len(items) < workers {
		workers = len(items) // Don't spawn more workers than items
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for idx, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, idx, item)
			if err != nil {
				return err
			}
			results[idx] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
