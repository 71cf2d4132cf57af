package payments

import (
	"context"
	"errors"
	"sync"

	"github.com/theirongolddev/paycheck/internal/metrics"
)

// ErrQueueClosed is returned when enqueueing after Stop.
var ErrQueueClosed = errors.New("payments: execution queue is closed")

// Job asks a worker to execute one order.
type Job struct {
	UserID  string
	OrderID string
}

// Handler executes one job.
type Handler func(ctx context.Context, job Job)

// Executor is a bounded worker pool fed by a channel. An order that is
// already queued or running is not queued again.
type Executor struct {
	jobs    chan Job
	closeCh chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[Job]struct{}
	closed  bool
	started bool
	workers int
}

// NewExecutor creates a queue with the given worker count and buffer size.
// buffer bounds how many jobs can wait before Enqueue blocks.
func NewExecutor(workers, buffer int) *Executor {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	return &Executor{
		jobs:    make(chan Job, buffer),
		closeCh: make(chan struct{}),
		pending: make(map[Job]struct{}),
		workers: workers,
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (e *Executor) Start(ctx context.Context, handle Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrQueueClosed
	}
	if e.started {
		return nil
	}
	e.started = true

	for range e.workers {
		e.wg.Add(1)
		go e.worker(ctx, handle)
	}
	return nil
}

// Running reports whether workers are consuming the queue.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started && !e.closed
}

// Enqueue adds a job unless the same job is already waiting or running.
// It reports whether the job was added.
func (e *Executor) Enqueue(ctx context.Context, job Job) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrQueueClosed
	}
	if _, dup := e.pending[job]; dup {
		e.mu.Unlock()
		return false, nil
	}
	e.pending[job] = struct{}{}
	e.mu.Unlock()

	select {
	case e.jobs <- job:
		metrics.QueueDepth.Inc()
		return true, nil
	case <-ctx.Done():
		e.done(job)
		return false, ctx.Err()
	case <-e.closeCh:
		e.done(job)
		return false, ErrQueueClosed
	}
}

func (e *Executor) done(job Job) {
	e.mu.Lock()
	delete(e.pending, job)
	e.mu.Unlock()
}

func (e *Executor) worker(ctx context.Context, handle Handler) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.closeCh:
			e.drain(ctx, handle)
			return
		case job := <-e.jobs:
			metrics.QueueDepth.Dec()
			handle(ctx, job)
			e.done(job)
		}
	}
}

// drain runs whatever is still buffered after Stop.
func (e *Executor) drain(ctx context.Context, handle Handler) {
	for {
		select {
		case job := <-e.jobs:
			metrics.QueueDepth.Dec()
			handle(ctx, job)
			e.done(job)
		default:
			return
		}
	}
}

// Stop closes the queue, lets workers finish buffered jobs, and waits for
// them or for ctx to expire.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.closeCh)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
