package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"
)

// taskQueueSize is the immediate-work queue capacity. Submit blocks when
// the queue is full, which backpressures the gateway rather than growing
// without bound.
const taskQueueSize = 256

// delayedTask is a unit of work due at a point in time. The sequence number
// breaks ties between tasks due at the same instant, preserving submission
// order.
type delayedTask struct {
	dueAt time.Time
	seq   uint64
	fn    func()
}

// delayedLess orders tasks by due time ascending, then sequence ascending,
// so Min() is always the next task to run.
func delayedLess(a, b delayedTask) bool {
	if !a.dueAt.Equal(b.dueAt) {
		return a.dueAt.Before(b.dueAt)
	}
	return a.seq < b.seq
}

// Scheduler executes immediate work on a bounded worker pool and delayed
// work (retry continuations, partial-fill follow-ups, confirmations) after
// its due time elapses. Delayed tasks are kept in a B-tree ordered by
// (dueAt, seq); a single timer goroutine sleeps until the earliest task is
// due and then dispatches it onto the pool.
type Scheduler struct {
	workers int
	tasks   chan func()

	mu      sync.Mutex
	delayed *btree.BTreeG[delayedTask]
	seq     uint64

	wake chan struct{}

	startOnce sync.Once
	ctx       context.Context
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler with the given worker pool size.
func NewScheduler(workers int) *Scheduler {
	const degree = 16
	return &Scheduler{
		workers: workers,
		tasks:   make(chan func(), taskQueueSize),
		delayed: btree.NewG[delayedTask](degree, delayedLess),
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the worker pool and the timer goroutine. Workers drain the
// task queue until ctx is cancelled; an in-flight task always runs to
// completion.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.ctx = ctx

		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker(ctx)
		}

		s.wg.Add(1)
		go s.timerLoop(ctx)
	})
}

// Wait blocks until all workers and the timer goroutine have stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Submit enqueues fn for immediate execution on the worker pool. It blocks
// while the queue is full and drops the task if the scheduler has stopped.
func (s *Scheduler) Submit(fn func()) {
	if s.ctx != nil {
		select {
		case s.tasks <- fn:
		case <-s.ctx.Done():
		}
		return
	}
	s.tasks <- fn
}

// After schedules fn to run on the worker pool once d has elapsed.
// A non-positive delay submits immediately.
func (s *Scheduler) After(d time.Duration, fn func()) {
	if d <= 0 {
		s.Submit(fn)
		return
	}

	s.mu.Lock()
	s.seq++
	task := delayedTask{dueAt: time.Now().Add(d), seq: s.seq, fn: fn}
	s.delayed.ReplaceOrInsert(task)
	next, _ := s.delayed.Min()
	isEarliest := next.seq == task.seq
	s.mu.Unlock()

	// Wake the timer loop only when the new task moved the horizon.
	if isEarliest {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// PendingDelayed returns the number of delayed tasks not yet dispatched.
// Useful for testing.
func (s *Scheduler) PendingDelayed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayed.Len()
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

// timerLoop sleeps until the earliest delayed task is due, then moves every
// due task onto the worker pool. A wake signal re-evaluates the horizon when
// After inserts an earlier task.
func (s *Scheduler) timerLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		s.mu.Lock()
		next, ok := s.delayed.Min()
		s.mu.Unlock()

		var due <-chan time.Time
		if ok {
			timer.Reset(time.Until(next.dueAt))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			if ok && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			return
		case <-s.wake:
			if ok && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-due:
			s.dispatchDue(ctx, time.Now())
		}
	}
}

// dispatchDue pops every task with dueAt <= now and submits it to the pool.
func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	for {
		s.mu.Lock()
		next, ok := s.delayed.Min()
		if !ok || next.dueAt.After(now) {
			s.mu.Unlock()
			return
		}
		s.delayed.Delete(next)
		s.mu.Unlock()

		select {
		case s.tasks <- next.fn:
		case <-ctx.Done():
			return
		}
	}
}
