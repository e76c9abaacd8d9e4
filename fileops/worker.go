package fileops

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-evloop"
	"github.com/ehrlich-b/go-evloop/internal/interfaces"
)

// Options configures logging, instrumentation, and CPU pinning shared by
// every file async operation. A nil *Options (or a zero Options) disables
// all three; operations still run correctly, just unobserved.
type Options struct {
	Logger   interfaces.Logger
	Observer interfaces.Observer
	// Affinity lists candidate CPUs for worker pinning, assigned
	// round-robin across successive workers the way the teacher's
	// CPUAffinity []int assigns queues to CPUs. Nil disables pinning.
	Affinity []int
}

// workerSeq hands out round-robin indices into Options.Affinity. It is one
// package-wide counter shared by every Options value, so operations using
// different Options values advance the same sequence.
var workerSeq atomic.Uint64

// startWorker spawns the single worker goroutine an AsyncTask's
// StartAndThen must produce: it pins the thread, runs work, records
// instrumentation, and submits continuation. work returns the byte count
// and success flag to report through the Observer.
func startWorker(l *evloop.Loop, continuation evloop.Task, opts *Options, op string, work func() (bytes uint64, ok bool)) error {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if opts != nil && len(opts.Affinity) > 0 {
			idx := int(workerSeq.Add(1)-1) % len(opts.Affinity)
			cpu := opts.Affinity[idx]
			if err := setAffinity(cpu); err != nil {
				if opts.Logger != nil {
					opts.Logger.Printf("fileops: %s: failed to set CPU affinity to %d: %v", op, cpu, err)
				}
			} else if opts.Logger != nil {
				opts.Logger.Debugf("fileops: %s: pinned worker to CPU %d", op, cpu)
			}
		}

		start := time.Now()
		bytes, ok := work()
		latency := uint64(time.Since(start).Nanoseconds())

		if opts != nil {
			if opts.Observer != nil {
				opts.Observer.ObserveFileOp(op, bytes, latency, ok)
			}
			if opts.Logger != nil {
				opts.Logger.Debugf("fileops: %s done ok=%v bytes=%d", op, ok, bytes)
			}
		}

		if err := l.Submit(continuation); err != nil {
			if opts != nil && opts.Logger != nil {
				opts.Logger.Printf("fileops: %s: failed to submit continuation: %v", op, err)
			}
		}
	}()
	return nil
}
