package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many tasks may hold a worker slot at once. It is acquired
// for a training stage and closed when the run ends.
type Pool struct {
	sem    *semaphore.Weighted
	size   int64
	closed atomic.Bool
}

func NewPool(size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}, nil
}

func (p *Pool) Size() int {
	return int(p.size)
}

// Acquire blocks until a slot is free, ctx is done or the pool is closed.
func (p *Pool) Acquire(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if p.closed.Load() {
		p.sem.Release(1)
		return ErrPoolClosed
	}
	return nil
}

func (p *Pool) Release() {
	p.sem.Release(1)
}

// Close marks the pool unusable. Slots already held stay valid until released.
func (p *Pool) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *Pool) Closed() bool {
	return p.closed.Load()
}
