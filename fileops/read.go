package fileops

import (
	"io"

	"github.com/ehrlich-b/go-evloop"
	"github.com/ehrlich-b/go-evloop/internal/queue"
)

type readTask struct {
	handle *Handle
	cap    int
	buf    []byte
	outLen *int
	outOk  *bool
	opts   *Options
}

// Read returns an AsyncTask that reads up to cap bytes from handle into
// buf (which must have length >= cap). *outLen receives the number of
// bytes actually read; *outOk is true unless an error other than EOF
// occurred — a short read at end-of-file is not a failure, matching the
// original's distinction between "no bytes" and "error".
func Read(handle *Handle, cap int, buf []byte, outLen *int, outOk *bool, opts *Options) evloop.AsyncTask {
	return &readTask{handle: handle, cap: cap, buf: buf, outLen: outLen, outOk: outOk, opts: opts}
}

func (t *readTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "read", func() (uint64, bool) {
		if t.handle == nil || !t.handle.isOpen() {
			*t.outLen = 0
			*t.outOk = false
			return 0, false
		}
		n, err := t.handle.file.Read(t.buf[:t.cap])
		*t.outLen = n
		ok := err == nil || err == io.EOF
		*t.outOk = ok
		return uint64(n), ok
	})
}

type readAllocTask struct {
	handle *Handle
	length uint32
	outBuf *[]byte
	outOk  *bool
	opts   *Options
}

// ReadAlloc is a convenience variant of Read that doesn't require the
// caller to pre-allocate a buffer: it pulls one from the pooled buffer
// set in internal/queue (the same size-bucketed pool the teacher uses to
// avoid a per-read allocation) and hands ownership to the caller through
// outBuf. Callers must call ReleaseBuffer on it once done.
func ReadAlloc(handle *Handle, length uint32, outBuf *[]byte, outOk *bool, opts *Options) evloop.AsyncTask {
	return &readAllocTask{handle: handle, length: length, outBuf: outBuf, outOk: outOk, opts: opts}
}

func (t *readAllocTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "read", func() (uint64, bool) {
		buf := queue.GetBuffer(t.length)
		if t.handle == nil || !t.handle.isOpen() {
			queue.PutBuffer(buf)
			*t.outBuf = nil
			*t.outOk = false
			return 0, false
		}
		n, err := t.handle.file.Read(buf)
		ok := err == nil || err == io.EOF
		*t.outBuf = buf[:n]
		*t.outOk = ok
		return uint64(n), ok
	})
}

// ReleaseBuffer returns a buffer obtained from ReadAlloc to the pool.
func ReleaseBuffer(buf []byte) {
	queue.PutBuffer(buf)
}
