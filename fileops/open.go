package fileops

import (
	"os"

	"github.com/ehrlich-b/go-evloop"
)

type openTask struct {
	create    bool
	path      string
	outHandle **Handle
	opts      *Options
}

// Open returns an AsyncTask that opens path, reporting the resulting
// Handle through outHandle. If create is false and the file already
// exists, it is opened read-write without truncation; if it doesn't exist,
// the operation fails and *outHandle is left nil. If create is true, the
// file is created (and opened read-write) if absent, opened as-is
// otherwise. This is the fixed behaviour for the known defect in the
// original: opening with create=false must never truncate an existing
// file.
func Open(create bool, path string, outHandle **Handle, opts *Options) evloop.AsyncTask {
	return &openTask{create: create, path: path, outHandle: outHandle, opts: opts}
}

func (t *openTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "open", func() (uint64, bool) {
		flags := os.O_RDWR
		if t.create {
			flags |= os.O_CREATE
		}
		f, err := os.OpenFile(t.path, flags, 0644)
		if err != nil {
			*t.outHandle = nil
			return 0, false
		}
		h := &Handle{file: f}
		h.state.Store(int32(stateOpen))
		*t.outHandle = h
		return 0, true
	})
}
