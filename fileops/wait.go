package fileops

import (
	"sync"

	"github.com/ehrlich-b/go-evloop"
)

// WaitHandle is a one-shot rendezvous point: a Wait AsyncTask parks its
// worker on it until some other goroutine calls Signal. Modelled on the
// original's thread-blocked wait primitive (vox_event_loop_async_task_wait),
// dropped by the distilled spec but not excluded by any Non-goal.
type WaitHandle struct {
	mu       sync.Mutex
	cond     *sync.Cond
	signaled bool
}

// NewWaitHandle creates a WaitHandle ready to be waited on.
func NewWaitHandle() *WaitHandle {
	w := &WaitHandle{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Signal wakes any worker parked in Wait. Safe to call before Wait starts;
// the signal is latched, not missed. Calling it more than once is a no-op.
func (w *WaitHandle) Signal() {
	w.mu.Lock()
	w.signaled = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

type waitTask struct {
	handle *WaitHandle
	opts   *Options
}

// Wait returns an AsyncTask whose worker blocks until handle is signaled,
// then resumes its continuation. Unlike the file operations, it has no
// out_ok: the original's wait primitive only ever reports completion, not
// failure.
func Wait(handle *WaitHandle, opts *Options) evloop.AsyncTask {
	return &waitTask{handle: handle, opts: opts}
}

func (t *waitTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "wait", func() (uint64, bool) {
		t.handle.mu.Lock()
		for !t.handle.signaled {
			t.handle.cond.Wait()
		}
		t.handle.mu.Unlock()
		return 0, true
	})
}
