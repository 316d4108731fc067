package parallel

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-mvsplan/pkg/logging"
)

// ErrTaskPanicked wraps a panic raised by a Map task.
var ErrTaskPanicked = errors.New("task panicked")

// Map runs fn(ctx, i) for every i in [0, n) on a pool of workers and
// returns the results in index order. All tasks run to completion unless
// ctx is cancelled, in which case tasks not yet started fail with
// ctx.Err(). The returned error is the one of the lowest failing index.
func Map[T any](ctx context.Context, workers, n int, logger logging.Logger, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}
	if workers > n {
		workers = n
	}

	pool, err := NewWorkerPool(workers, logger)
	if err != nil {
		return nil, err
	}

	errs := make([]error, n)
	for i := 0; i < n; i++ {
		pool.Submit(func() {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%w: task %d: %v", ErrTaskPanicked, i, r)
				}
			}()
			results[i], errs[i] = fn(ctx, i)
		})
	}
	pool.Close()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
