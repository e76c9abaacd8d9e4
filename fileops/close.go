package fileops

import "github.com/ehrlich-b/go-evloop"

type closeTask struct {
	handle *Handle
	opts   *Options
}

// Close returns an AsyncTask that closes handle's underlying file. Closing
// a nil or already-closed handle is a no-op, not an error: the original's
// close has no out_ok parameter to report through.
func Close(handle *Handle, opts *Options) evloop.AsyncTask {
	return &closeTask{handle: handle, opts: opts}
}

func (t *closeTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "close", func() (uint64, bool) {
		if t.handle == nil || !t.handle.isOpen() {
			return 0, false
		}
		err := t.handle.file.Close()
		t.handle.state.Store(int32(stateClosed))
		return 0, err == nil
	})
}
