// Package fileops implements component F: the file async operations
// (open/close/read/write/seek) and the supplemented wait/rendezvous async
// task, all built as evloop.AsyncTask adapters around blocking *os.File
// calls run on pinned worker goroutines.
package fileops

import (
	"os"
	"sync/atomic"
)

// handleState tracks a Handle's position in its open -> closed lifecycle.
// Only the worker currently executing an operation on a handle may touch
// its file; this counter is a defensive guard against a host resuming an
// operation on an already-closed handle, not a concurrency primitive in
// its own right.
type handleState int32

const (
	stateUninitialized handleState = iota
	stateOpen
	stateClosed
)

// Handle is the opaque wrapper over an OS file object referenced by
// spec component F. Created by Open, released by Close.
type Handle struct {
	file  *os.File
	state atomic.Int32
}

// State reports the handle's current lifecycle state.
func (h *Handle) State() handleState {
	return handleState(h.state.Load())
}

func (h *Handle) isOpen() bool {
	return h.State() == stateOpen
}
