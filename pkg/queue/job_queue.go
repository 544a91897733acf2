package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// JobQueue is a FIFO of pending jobs that also tracks how many popped jobs are still being worked.
// Pending and in-flight counts change under one mutex, so "idle" (nothing pending, nothing in
// flight) is never observed while a worker is between popping a job and submitting its children.
type JobQueue[T any] struct {
	mu       sync.Mutex
	ready    *sync.Cond // Pop waiters; signalled on push, broadcast on close
	idle     *sync.Cond // WaitIdle waiters; broadcast on idle and close
	items    []T
	inFlight int
	maxLen   int // 0 = unbounded
	closed   bool
	log      *logrus.Entry
}

// NewJobQueue creates an empty queue. maxLen caps pending jobs; 0 disables the cap.
func NewJobQueue[T any](maxLen int, logger *logrus.Entry) *JobQueue[T] {
	q := &JobQueue[T]{maxLen: maxLen, log: logger}
	q.ready = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Push appends a job. It never blocks.
func (q *JobQueue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return utils.ErrQueueClosed
	}
	if q.maxLen > 0 && len(q.items) >= q.maxLen {
		return utils.ErrQueueFull
	}

	q.items = append(q.items, item)
	q.ready.Signal()
	return nil
}

// Pop blocks until a job is available and moves it to in-flight.
// Returns false once the queue is closed.
func (q *JobQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.ready.Wait()
	}

	var zero T
	if q.closed {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.inFlight++
	return item, true
}

// Done marks one popped job as finished. Children must be pushed before calling Done.
func (q *JobQueue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight == 0 {
		q.log.Warn("JobQueue.Done called with nothing in flight")
		return
	}
	q.inFlight--
	if q.idleLocked() {
		q.idle.Broadcast()
	}
}

// WaitIdle blocks until the queue is idle, closed, or ctx is done.
func (q *JobQueue[T]) WaitIdle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.idle.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.idleLocked() && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.idle.Wait()
	}
	return nil
}

// Close drops pending jobs and wakes every waiter. Safe to call more than once.
func (q *JobQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if n := len(q.items); n > 0 {
		q.log.Debugf("Closing job queue with %d pending jobs", n)
	}
	q.closed = true
	q.items = nil
	q.ready.Broadcast()
	q.idle.Broadcast()
}

// Len returns the number of pending jobs
func (q *JobQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the number of popped jobs not yet marked Done
func (q *JobQueue[T]) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Idle reports whether nothing is pending and nothing is in flight
func (q *JobQueue[T]) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idleLocked()
}

func (q *JobQueue[T]) idleLocked() bool {
	return len(q.items) == 0 && q.inFlight == 0
}
