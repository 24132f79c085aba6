// Package savequeue runs save tasks one at a time with a single pending slot.
//
// At most one task is in flight and at most one is waiting. Submitting while
// a task is waiting replaces it, so only the latest snapshot is ever saved.
// Scheduled tasks wait for a quiet period before they become eligible.
package savequeue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period applied by Schedule.
const DefaultDebounce = 1500 * time.Millisecond

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("savequeue: closed")

// Task saves one snapshot.
type Task func(ctx context.Context) error

// Options configure a Queue.
type Options struct {
	// Debounce is the quiet period after the last Schedule call. Zero uses
	// DefaultDebounce, a negative value disables debouncing.
	Debounce time.Duration

	// OnResult is called after every task with the task's error.
	OnResult func(err error)
}

// Queue is a single-slot save queue. The zero value is not usable; call New.
type Queue struct {
	ctx      context.Context
	cancel   context.CancelFunc
	debounce time.Duration
	onResult func(error)

	mu      sync.Mutex
	pending Task
	timer   *time.Timer
	gen     uint64
	running bool
	closed  bool
	lastErr error
	waiters []chan error
}

// New returns an empty queue. Tasks run with a context derived from ctx;
// Close cancels it.
func New(ctx context.Context, opts Options) *Queue {
	d := opts.Debounce
	if d == 0 {
		d = DefaultDebounce
	}
	if d < 0 {
		d = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Queue{
		ctx:      ctx,
		cancel:   cancel,
		debounce: d,
		onResult: opts.OnResult,
	}
}

// Schedule puts task in the pending slot and restarts the debounce timer.
func (q *Queue) Schedule(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.pending = task
	q.stopTimerLocked()
	if q.debounce == 0 {
		q.startLocked()
		return
	}
	q.gen++
	gen := q.gen
	q.timer = time.AfterFunc(q.debounce, func() { q.fire(gen) })
}

// Submit puts task in the pending slot and runs it as soon as nothing is in
// flight, skipping the debounce.
func (q *Queue) Submit(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.pending = task
	q.stopTimerLocked()
	q.startLocked()
}

// Flush runs the pending task immediately and waits until the queue is idle.
// It returns the error of the last task that ran, or nil when nothing ran.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.stopTimerLocked()
	q.startLocked()
	if q.idleLocked() {
		q.mu.Unlock()
		return nil
	}
	done := make(chan error, 1)
	q.waiters = append(q.waiters, done)
	q.mu.Unlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a task is waiting to run.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending != nil
}

// Busy reports whether a task is in flight or waiting.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.idleLocked()
}

// LastError returns the error of the most recent task.
func (q *Queue) LastError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Close flushes the queue and rejects further tasks. The in-flight task's
// context is cancelled once the flush returns.
func (q *Queue) Close(ctx context.Context) error {
	err := q.Flush(ctx)
	if errors.Is(err, ErrClosed) {
		return nil
	}

	q.mu.Lock()
	q.closed = true
	q.pending = nil
	q.stopTimerLocked()
	q.mu.Unlock()

	q.cancel()
	return err
}

// fire ignores timers that were stopped or replaced after they expired.
func (q *Queue) fire(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen || q.timer == nil {
		return
	}
	q.timer = nil
	q.startLocked()
}

// startLocked launches the pending task unless one is in flight or the
// debounce timer is still armed.
func (q *Queue) startLocked() {
	if q.running || q.pending == nil || q.timer != nil {
		return
	}
	task := q.pending
	q.pending = nil
	q.running = true
	go q.run(task)
}

func (q *Queue) run(task Task) {
	err := task(q.ctx)

	q.mu.Lock()
	q.running = false
	q.lastErr = err
	q.startLocked()
	var waiters []chan error
	if q.idleLocked() {
		waiters = q.waiters
		q.waiters = nil
	}
	q.mu.Unlock()

	if q.onResult != nil {
		q.onResult(err)
	}
	for _, w := range waiters {
		w <- err
	}
}

func (q *Queue) idleLocked() bool {
	return !q.running && q.pending == nil
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}
