package cart

import (
	"context"
	"sync"
)

type job struct {
	ctx context.Context
	fn  func(ctx context.Context) error
	res chan error
}

// queue runs jobs one at a time in the order they were handed over.
// The inbox is unbuffered: once a send succeeds the worker owns the job and
// always answers on res.
type queue struct {
	inbox     chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newQueue() *queue {
	q := &queue{
		inbox: make(chan job),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *queue) loop() {
	defer close(q.done)
	for {
		select {
		case <-q.quit:
			return
		case j := <-q.inbox:
			// skip work nobody waits for anymore
			if err := j.ctx.Err(); err != nil {
				j.res <- err
				continue
			}
			j.res <- j.fn(j.ctx)
		}
	}
}

func (q *queue) run(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{ctx: ctx, fn: fn, res: make(chan error, 1)}
	select {
	case q.inbox <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}
	select {
	case err := <-j.res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *queue) close() {
	q.closeOnce.Do(func() { close(q.quit) })
	<-q.done
}
