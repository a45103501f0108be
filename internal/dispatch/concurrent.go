package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Concurrent runs every task on the pool and waits for all of them, even
// when some fail.
type Concurrent struct {
	Pool           *Pool
	MaxConcurrency int
}

func NewConcurrent(pool *Pool, maxConcurrency int) *Concurrent {
	return &Concurrent{Pool: pool, MaxConcurrency: maxConcurrency}
}

func (c *Concurrent) Name() string {
	return string(StrategyConcurrent)
}

// Run returns a full-length result slice. Task failures come back as a
// *DispatchError listing every failed index. Problems with the pool itself
// come back as an operational *DispatchError and no results.
func (c *Concurrent) Run(ctx context.Context, tasks []Task) ([]any, error) {
	if c.MaxConcurrency < 1 {
		return nil, operational(fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.Pool == nil {
		return nil, operational(errors.New("no worker pool"))
	}
	if c.Pool.Closed() {
		return nil, operational(ErrPoolClosed)
	}

	results := make([]any, len(tasks))
	taskErrs := make([]error, len(tasks))

	var (
		mu      sync.Mutex
		acquire error
	)

	var g errgroup.Group
	g.SetLimit(min(c.MaxConcurrency, c.Pool.Size()))

	for i, task := range tasks {
		g.Go(func() error {
			if err := c.Pool.Acquire(ctx); err != nil {
				mu.Lock()
				if acquire == nil {
					acquire = err
				}
				mu.Unlock()
				return nil
			}
			defer c.Pool.Release()

			results[i], taskErrs[i] = runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	if acquire != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, operational(fmt.Errorf("acquire worker slot: %w", acquire))
	}

	var derr *DispatchError
	for i, err := range taskErrs {
		if err == nil {
			continue
		}
		if derr == nil {
			derr = &DispatchError{Errs: make(map[int]error)}
		}
		derr.Failed = append(derr.Failed, i)
		derr.Errs[i] = err
	}
	if derr != nil {
		return results, derr
	}

	return results, nil
}
