package utils

import (
	"context"
	"sync"
	"time"
)

// ThrottledPool runs jobs on at most workers goroutines and starts at most
// one job per interval. Once ctx is done it admits no more work, and jobs
// still waiting for their start slot are abandoned.
type ThrottledPool struct {
	ctx      context.Context
	slots    chan struct{}
	interval time.Duration

	wg   sync.WaitGroup
	mu   sync.Mutex
	next time.Time
}

// NewThrottledPool creates a pool bound to ctx. workers below one is treated
// as one.
func NewThrottledPool(ctx context.Context, workers int, interval time.Duration) *ThrottledPool {
	if workers < 1 {
		workers = 1
	}
	return &ThrottledPool{
		ctx:      ctx,
		slots:    make(chan struct{}, workers),
		interval: interval,
	}
}

// Go blocks until a worker is free and then runs job on it. It returns the
// context's error, without running job, once the pool's context is done.
func (p *ThrottledPool) Go(job func(ctx context.Context)) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.slots <- struct{}{}:
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()

		if err := p.waitTurn(); err != nil {
			return
		}
		job(p.ctx)
	}()
	return nil
}

// Wait blocks until every admitted job has returned or been abandoned.
func (p *ThrottledPool) Wait() {
	p.wg.Wait()
}

// waitTurn reserves the next start slot and sleeps until it, giving up when
// the context ends first.
func (p *ThrottledPool) waitTurn() error {
	p.mu.Lock()
	start := p.next
	if now := time.Now(); start.Before(now) {
		start = now
	}
	p.next = start.Add(p.interval)
	p.mu.Unlock()

	wait := time.Until(start)
	if wait <= 0 {
		return p.ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-timer.C:
		return nil
	}
}
