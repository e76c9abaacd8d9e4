package fileops

import (
	"math"

	"github.com/ehrlich-b/go-evloop"
)

type seekTask struct {
	handle *Handle
	rawPos uint64
	outOk  *bool
	opts   *Options
}

// SeekAbsolute returns an AsyncTask that seeks handle to the absolute byte
// offset pos. A negative pos is rejected the same way an out-of-range one
// is: *outOk = false and the file position is left untouched.
func SeekAbsolute(handle *Handle, pos int64, outOk *bool, opts *Options) evloop.AsyncTask {
	if pos < 0 {
		return &seekTask{handle: handle, rawPos: math.MaxUint64, outOk: outOk, opts: opts}
	}
	return &seekTask{handle: handle, rawPos: uint64(pos), outOk: outOk, opts: opts}
}

// SeekAbsoluteRaw accepts the offset as an unsigned 64-bit value, the
// direct analogue of the original's position overflow check: the original
// rejects any position exceeding the platform's signed-long range before
// calling fseek. Go's int64 has no narrower signed range to overflow on a
// 64-bit host, so the bound is math.MaxInt64 itself — a rawPos larger than
// that cannot be represented as the int64 os.File.Seek expects, and is
// rejected the same way the original rejects an oversized position.
func SeekAbsoluteRaw(handle *Handle, rawPos uint64, outOk *bool, opts *Options) evloop.AsyncTask {
	return &seekTask{handle: handle, rawPos: rawPos, outOk: outOk, opts: opts}
}

func (t *seekTask) StartAndThen(l *evloop.Loop, continuation evloop.Task) error {
	return startWorker(l, continuation, t.opts, "seek", func() (uint64, bool) {
		if t.handle == nil || !t.handle.isOpen() {
			*t.outOk = false
			return 0, false
		}
		if t.rawPos > math.MaxInt64 {
			*t.outOk = false
			return 0, false
		}
		_, err := t.handle.file.Seek(int64(t.rawPos), 0)
		ok := err == nil
		*t.outOk = ok
		return 0, ok
	})
}
