package fileops

import "github.com/ehrlich-b/go-evloop"

type writeTask struct {
	handle *Handle
	buf    []byte
	outOk  *bool
	opts   *Options
}

// Write returns an AsyncTask that writes all of buf to handle. *outOk is
// true iff every byte was written and no error was returned; a nil or
// closed handle reports false rather than panicking.
func Write(handle *Handle, buf []byte, outOk *bool, opts *Options) evloop.AsyncTask {
	return &writeTask{handle: handle, buf: buf, outOk: outOk, opts: opts}
}

func (t *writeTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "write", func() (uint64, bool) {
		if t.handle == nil || !t.handle.isOpen() {
			*t.outOk = false
			return 0, false
		}
		n, err := t.handle.file.Write(t.buf)
		ok := err == nil && n == len(t.buf)
		*t.outOk = ok
		return uint64(n), ok
	})
}
