// Package workqueue runs keyed background jobs on a fixed pool of workers.
// At most one job per key is queued or running at any time.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"qbank_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicate = errors.New("job already queued or running")
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job queue is closed")
)

// Job receives the queue's run context and should return promptly once it is done.
type Job func(ctx context.Context)

type task struct {
	key string
	fn  Job
}

type Queue struct {
	tasks   chan task
	workers int

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool

	onDepth func(int)
}

func New(size, workers int) *Queue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		tasks:    make(chan task, size),
		workers:  workers,
		inflight: make(map[string]struct{}),
	}
}

// OnDepthChange registers a hook called with the number of waiting jobs whenever it changes.
func (q *Queue) OnDepthChange(fn func(depth int)) {
	q.mu.Lock()
	q.onDepth = fn
	q.mu.Unlock()
}

// Submit enqueues fn under key without blocking.
func (q *Queue) Submit(key string, fn Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, ok := q.inflight[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	select {
	case q.tasks <- task{key: key, fn: fn}:
		q.inflight[key] = struct{}{}
		q.reportDepthLocked()
		return nil
	default:
		return ErrQueueFull
	}
}

// InFlight reports whether a job for key is queued or running.
func (q *Queue) InFlight(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[key]
	return ok
}

// Len is the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Run starts the workers and blocks until ctx is cancelled. Running jobs see the
// cancellation through their context; jobs still waiting are dropped and their
// keys released. The queue rejects submissions afterwards.
func (q *Queue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(gctx)
			return nil
		})
	}
	err := g.Wait()

	q.mu.Lock()
	q.closed = true
	dropped := 0
	for {
		select {
		case t := <-q.tasks:
			delete(q.inflight, t.key)
			dropped++
			continue
		default:
		}
		break
	}
	q.reportDepthLocked()
	q.mu.Unlock()

	if dropped > 0 {
		logger.Log.Warn("Job queue stopped with pending jobs", zap.Int("dropped", dropped))
	}
	return err
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.mu.Lock()
			q.reportDepthLocked()
			q.mu.Unlock()
			q.execute(ctx, t)
		}
	}
}

func (q *Queue) execute(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Job panicked", zap.String("key", t.key), zap.Any("panic", r), zap.Stack("stack"))
		}
		q.mu.Lock()
		delete(q.inflight, t.key)
		q.mu.Unlock()
	}()
	t.fn(ctx)
}

func (q *Queue) reportDepthLocked() {
	if q.onDepth != nil {
		q.onDepth(len(q.tasks))
	}
}
