package executor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many processes run at once. Waiters are admitted in no
// particular order.
type Pool struct {
	sem     *semaphore.Weighted
	limit   int64
	running atomic.Int64
	waiting atomic.Int64
}

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	Limit   int64
	Running int64
	Waiting int64
}

// NewPool creates a Pool with limit slots. A limit below 1 is raised to 1.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), limit: int64(limit)}
}

// Run takes a slot, runs fn and gives the slot back. If every slot is busy
// it waits, returning ctx.Err() when ctx is done first. A nil pool runs fn
// directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil {
		return fn()
	}
	if !p.sem.TryAcquire(1) {
		p.waiting.Add(1)
		start := time.Now()
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "exec slot acquired", "waited_ms", time.Since(start).Milliseconds())
	}

	p.running.Add(1)
	defer func() {
		p.running.Add(-1)
		p.sem.Release(1)
	}()
	return fn()
}

// Stats reports the current slot usage.
func (p *Pool) Stats() PoolStats {
	if p == nil {
		return PoolStats{}
	}
	return PoolStats{Limit: p.limit, Running: p.running.Load(), Waiting: p.waiting.Load()}
}
