// Package taskrunner implements the "LinkedRunner" control-plane task
// queue: a single-producer, single-consumer FIFO whose Submit never blocks
// the caller, used to serialize checkpoint creation, meta-namespace
// flush and transfer orchestration.
package taskrunner

import (
	"sync"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/rs/zerolog"
)

// Task is one unit of control-plane work.
type Task func()

type node struct {
	task Task
	next *node
}

// Runner is a FIFO of closures drained by exactly one consumer goroutine.
// Submit is implemented over a mutex-guarded linked list rather than a
// fixed-capacity channel so a submitter is never made to wait behind a
// slow or stalled control-plane task — only strict FIFO order and
// at-most-one-task-in-flight are guaranteed.
type Runner struct {
	coreID string

	mu     sync.Mutex
	cond   *sync.Cond
	head   *node
	tail   *node
	depth  int
	closed bool
	doneCh chan struct{}
}

// New starts a Runner's consumer goroutine and returns the handle.
// coreID labels the runner's metrics.
func New(coreID string) *Runner {
	r := &Runner{
		coreID: coreID,
		doneCh: make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	go r.consume()
	return r
}

// Submit enqueues task for execution, preserving submission order relative
// to every other Submit call. It never blocks the caller.
func (r *Runner) Submit(task Task) {
	n := &node{task: task}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.tail == nil {
		r.head = n
		r.tail = n
	} else {
		r.tail.next = n
		r.tail = n
	}
	r.depth++
	metrics.TaskRunnerQueueDepth.WithLabelValues(r.coreID).Set(float64(r.depth))
	r.mu.Unlock()

	r.cond.Signal()
}

// Depth returns the current queue depth, including any task presently
// being executed.
func (r *Runner) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth
}

// Close stops accepting new tasks and waits for the consumer goroutine to
// drain whatever is already queued.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cond.Signal()
	<-r.doneCh
}

func (r *Runner) consume() {
	defer close(r.doneCh)
	logger := log.WithComponent("taskrunner")

	for {
		r.mu.Lock()
		for r.head == nil && !r.closed {
			r.cond.Wait()
		}
		if r.head == nil && r.closed {
			r.mu.Unlock()
			return
		}
		n := r.head
		r.head = n.next
		if r.head == nil {
			r.tail = nil
		}
		r.mu.Unlock()

		timer := metrics.NewTimer()
		runTaskSafely(n.task, logger)
		timer.ObserveDurationVec(metrics.TaskRunnerTaskDuration, r.coreID)

		r.mu.Lock()
		r.depth--
		metrics.TaskRunnerQueueDepth.WithLabelValues(r.coreID).Set(float64(r.depth))
		r.mu.Unlock()
	}
}

// runTaskSafely runs task, recovering a panic so one broken control-plane
// task cannot take down the consumer goroutine and stall every task
// behind it.
func runTaskSafely(task Task, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("control-plane task panicked")
		}
	}()
	task()
}
