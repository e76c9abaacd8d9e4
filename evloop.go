// Package evloop implements a small, embeddable cooperative task runtime:
// a single-consumer event loop with a multi-producer ready queue (see
// internal/queue), and the Task/AsyncTask contracts user code and the
// fileops package implement to express multi-step asynchronous work as a
// stackless state machine.
package evloop

import (
	"time"

	"github.com/ehrlich-b/go-evloop/internal/interfaces"
	"github.com/ehrlich-b/go-evloop/internal/queue"
)

// Task is a user-defined state machine driven by the loop. Resume advances
// one state and returns an Await describing what should happen next; Drop
// is called by the loop's Destroy for tasks still sitting in the ready
// queue, so the task can release owned resources.
//
// Resume must not submit self back into the loop — re-entry happens purely
// through the returned Await. Resume may submit other tasks (fan-out), just
// never itself.
type Task interface {
	Resume(l *Loop) (Await, error)
	Drop(l *Loop)
}

// AsyncTask represents a blocking operation to be performed off the loop.
// It is consumed exactly once by StartAndThen, which must spawn exactly one
// worker, perform the blocking step, and submit continuation back into the
// loop before the worker exits.
type AsyncTask interface {
	StartAndThen(l *Loop, continuation Task) error
}

// Await is what Resume returns. The valid shapes are:
//
//	{AsyncTask: t, Continuation: k}  both non-nil: start t, resume k when done
//	{AsyncTask: nil, Continuation: nil}  done, do not reschedule
//
// Any other combination (one nil, one not) is a protocol violation and
// RunUntil treats it as fatal.
type Await struct {
	AsyncTask    AsyncTask
	Continuation Task
}

// Config configures a new Loop.
type Config struct {
	// SegmentCapacity is N, the number of task slots per ready-queue
	// segment. Zero uses queue.DefaultSegmentCapacity (1024).
	SegmentCapacity int
	Logger          interfaces.Logger
	Observer        interfaces.Observer
}

// Loop owns the ready queue and the park/notify gate guarding it. Any
// goroutine holding a reference may call Submit; only one goroutine should
// drive RunUntil/Park at a time (spec scope: single consumer).
type Loop struct {
	gate     *queue.Gate
	logger   interfaces.Logger
	observer interfaces.Observer
}

// New allocates and initializes a Loop.
func New(cfg Config) (*Loop, error) {
	return &Loop{
		gate:     queue.NewGate(cfg.SegmentCapacity),
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}, nil
}

// Submit pushes task onto the ready queue and wakes a parked consumer.
// Ownership of task transfers to the loop on success.
func (l *Loop) Submit(task Task) error {
	if task == nil {
		return NewError("submit", CodeProtocol, "nil task")
	}
	if err := l.gate.Submit(task); err != nil {
		return WrapError("submit", err)
	}
	if l.logger != nil {
		l.logger.Debugf("submitted task, queue depth now %d", l.gate.Len())
	}
	if l.observer != nil {
		l.observer.ObserveSubmit(l.gate.Len())
	}
	return nil
}

// RunUntil pops and resumes one task per iteration while pred() is true.
// It returns as soon as the ready queue is observed empty — it does not
// block waiting for more work; callers that want blocking behaviour call
// Park between RunUntil calls. This non-blocking-on-empty behaviour is
// deliberate (spec §9, §5) and load-bearing for park/wakeup tests: batching
// more than one pop per predicate check would change the observable
// cadence hosts rely on to interleave external state changes.
func (l *Loop) RunUntil(pred func() bool) error {
	for pred() {
		entry, ok := l.gate.Pop()
		if !ok {
			return nil
		}
		task, ok := entry.(Task)
		if !ok {
			return NewError("run_until", CodeProtocol, "queue entry is not a Task")
		}

		await, err := task.Resume(l)
		if l.observer != nil {
			l.observer.ObserveResume(await.AsyncTask != nil)
		}
		if err != nil {
			return WrapError("resume", err)
		}

		if err := validateAwait(await); err != nil {
			return err
		}

		if await.AsyncTask != nil {
			if err := await.AsyncTask.StartAndThen(l, await.Continuation); err != nil {
				return WrapError("start_and_then", err)
			}
		}
	}
	return nil
}

func validateAwait(a Await) error {
	switch {
	case a.AsyncTask != nil && a.Continuation == nil:
		return NewError("run_until", CodeProtocol, "await has an async task but no continuation")
	case a.AsyncTask == nil && a.Continuation != nil:
		return NewError("run_until", CodeProtocol, "await has a continuation but no async task")
	default:
		return nil
	}
}

// Park blocks the caller until either Submit signals it or timeout
// elapses. timedOut reports which one happened. If a task is already
// queued when Park is called, it returns at once with timedOut false.
// Spurious wakeups cannot occur with this implementation, but callers
// should still re-check the queue after Park returns, per spec §4.B.
func (l *Loop) Park(timeout time.Duration) (timedOut bool, err error) {
	start := time.Now()
	timedOut = l.gate.Park(timeout)
	if l.observer != nil {
		l.observer.ObservePark(timedOut, uint64(time.Since(start).Nanoseconds()))
	}
	if l.logger != nil {
		l.logger.Debugf("park returned, timed_out=%v", timedOut)
	}
	return timedOut, nil
}

// Destroy drains the ready queue, calling Drop on every task still queued,
// then releases the loop. It must not be called while any async worker
// might still submit a continuation into this loop — see spec §5's
// use-after-free hazard. Destroy does not itself synchronize against
// concurrent Submit/RunUntil/Park calls; quiescing those is the host's
// responsibility.
func (l *Loop) Destroy() {
	for {
		entry, ok := l.gate.Pop()
		if !ok {
			return
		}
		task, ok := entry.(Task)
		if !ok {
			continue
		}
		task.Drop(l)
	}
}

// Len reports the number of tasks currently queued. Exposed for hosts and
// tests that want to observe queue depth without popping.
func (l *Loop) Len() int {
	return l.gate.Len()
}

// CancelPending removes task from the ready queue before it is ever
// resumed, if it is still present. It reports whether task was found and
// removed. This only covers the "not yet popped" case spec §5 calls out as
// cancellable; a task already handed to an async operation cannot be
// recalled (see spec §5, "Cancellation & timeouts").
func (l *Loop) CancelPending(task Task) bool {
	return l.gate.RemovePending(task)
}
