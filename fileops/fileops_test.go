package fileops

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	evloop "github.com/ehrlich-b/go-evloop"
)

func drain(t *testing.T, l *evloop.Loop, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for completion")
		}
		if l.Len() == 0 {
			if _, err := l.Park(20 * time.Millisecond); err != nil {
				t.Fatalf("park: %v", err)
			}
		}
		if err := l.RunUntil(evloop.AlwaysTrue); err != nil {
			t.Fatalf("run_until: %v", err)
		}
	}
}

// roundTripTask is a hand-written state machine mirroring the open -> write
// -> seek -> read -> assert scenario, since each step's AsyncTask needs the
// Handle produced by the previous step.
type roundTripTask struct {
	step    int
	path    string
	handle  *Handle
	data    []byte
	buf     []byte
	n       int
	writeOk bool
	seekOk  bool
	readOk  bool
	done    *bool
}

func (r *roundTripTask) Resume(l *evloop.Loop) (evloop.Await, error) {
	switch r.step {
	case 0:
		r.step++
		return evloop.Await{AsyncTask: Open(true, r.path, &r.handle, nil), Continuation: r}, nil
	case 1:
		r.step++
		return evloop.Await{AsyncTask: Write(r.handle, r.data, &r.writeOk, nil), Continuation: r}, nil
	case 2:
		r.step++
		return evloop.Await{AsyncTask: SeekAbsolute(r.handle, 0, &r.seekOk, nil), Continuation: r}, nil
	case 3:
		r.step++
		return evloop.Await{AsyncTask: Read(r.handle, len(r.data), r.buf, &r.n, &r.readOk, nil), Continuation: r}, nil
	default:
		*r.done = true
		return evloop.Await{}, nil
	}
}

func (r *roundTripTask) Drop(l *evloop.Loop) {}

func TestWriteSeekReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.txt")
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	data := []byte("hello world, round trip")
	done := false
	task := &roundTripTask{path: path, data: data, buf: make([]byte, len(data)), done: &done}
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return done })

	require.True(t, task.writeOk, "expected write out_ok to be true")
	require.True(t, task.seekOk, "expected seek out_ok to be true")
	require.True(t, task.readOk, "expected read out_ok to be true")
	require.Equal(t, len(data), task.n)
	require.Equal(t, string(data), string(task.buf[:task.n]))
}

// writeCloseTask is the open -> write -> close sequence: open with
// create=true, write the payload, assert the write succeeded, close, set
// the done flag.
type writeCloseTask struct {
	step    int
	path    string
	payload []byte
	handle  *Handle
	writeOk bool
	done    *bool
}

func (w *writeCloseTask) Resume(l *evloop.Loop) (evloop.Await, error) {
	switch w.step {
	case 0:
		w.step++
		return evloop.Await{AsyncTask: Open(true, w.path, &w.handle, nil), Continuation: w}, nil
	case 1:
		w.step++
		return evloop.Await{AsyncTask: Write(w.handle, w.payload, &w.writeOk, nil), Continuation: w}, nil
	case 2:
		w.step++
		if !w.writeOk {
			return evloop.Await{}, evloop.NewError("write", evloop.CodeIO, "write reported out_ok=false")
		}
		return evloop.Await{AsyncTask: Close(w.handle, nil), Continuation: w}, nil
	default:
		*w.done = true
		return evloop.Await{}, nil
	}
}

func (w *writeCloseTask) Drop(l *evloop.Loop) {}

func TestWriteThenCloseSetsFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	payload := []byte("Hello world!\n")
	done := false
	task := &writeCloseTask{path: path, payload: payload, done: &done}
	require.NoError(t, l.Submit(task))

	drain(t, l, 500*time.Millisecond, func() bool { return done })

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(payload), string(got))
	require.Equal(t, stateClosed, task.handle.State())
}

func TestOpenCreateFalseDoesNotTruncateExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.txt")
	const original = "do not clobber me"
	require.NoError(t, os.WriteFile(path, []byte(original), 0644))

	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	var handle *Handle
	opened := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { opened = true }
	task := evloop.NewMockTask(evloop.Await{AsyncTask: Open(false, path, &handle, nil), Continuation: final})
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return opened })

	require.NotNil(t, handle, "expected open to succeed on an existing file")
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(got), "existing file was clobbered")
}

func TestOpenCreateFalseMissingFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.txt")

	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	handle := &Handle{} // sentinel, overwritten to nil on failure
	handle.state.Store(int32(stateOpen))
	failed := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { failed = true }
	task := evloop.NewMockTask(evloop.Await{AsyncTask: Open(false, path, &handle, nil), Continuation: final})
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return failed })

	require.Nil(t, handle, "expected handle to be nil after a failed open")
}

func TestCloseOnNilOrClosedHandleIsNoOp(t *testing.T) {
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	finished := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { finished = true }
	task := evloop.NewMockTask(evloop.Await{AsyncTask: Close(nil, nil), Continuation: final})
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return finished })

	closed := &Handle{}
	closed.state.Store(int32(stateClosed))
	finished = false
	task = evloop.NewMockTask(evloop.Await{AsyncTask: Close(closed, nil), Continuation: final})
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return finished })
	require.Equal(t, stateClosed, closed.State())
}

func TestSeekRejectsOversizedPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.txt")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0644))
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	handle := &Handle{file: f}
	handle.state.Store(int32(stateOpen))

	_, err = f.Seek(3, 0)
	require.NoError(t, err)

	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	var ok bool
	done := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { done = true }
	task := evloop.NewMockTask(evloop.Await{
		AsyncTask:    SeekAbsoluteRaw(handle, uint64(math.MaxInt64)+1, &ok, nil),
		Continuation: final,
	})
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return done })

	require.False(t, ok, "expected out_ok to be false for an oversized seek position")
	pos, err := f.Seek(0, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), pos, "expected file position to stay put")
}

// allocRoundTripTask mirrors roundTripTask but reads back through
// ReadAlloc instead of a caller-supplied buffer, exercising the pooled
// buffer path end to end.
type allocRoundTripTask struct {
	step    int
	path    string
	handle  *Handle
	data    []byte
	out     []byte
	writeOk bool
	seekOk  bool
	readOk  bool
	done    *bool
}

func (r *allocRoundTripTask) Resume(l *evloop.Loop) (evloop.Await, error) {
	switch r.step {
	case 0:
		r.step++
		return evloop.Await{AsyncTask: Open(true, r.path, &r.handle, nil), Continuation: r}, nil
	case 1:
		r.step++
		return evloop.Await{AsyncTask: Write(r.handle, r.data, &r.writeOk, nil), Continuation: r}, nil
	case 2:
		r.step++
		return evloop.Await{AsyncTask: SeekAbsolute(r.handle, 0, &r.seekOk, nil), Continuation: r}, nil
	case 3:
		r.step++
		return evloop.Await{AsyncTask: ReadAlloc(r.handle, uint32(len(r.data)), &r.out, &r.readOk, nil), Continuation: r}, nil
	default:
		*r.done = true
		return evloop.Await{}, nil
	}
}

func (r *allocRoundTripTask) Drop(l *evloop.Loop) {}

func TestReadAllocRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readalloc.txt")
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	data := []byte("pooled buffer round trip via ReadAlloc")
	done := false
	task := &allocRoundTripTask{path: path, data: data, done: &done}
	require.NoError(t, l.Submit(task))

	drain(t, l, time.Second, func() bool { return done })

	require.True(t, task.writeOk, "expected write out_ok to be true")
	require.True(t, task.seekOk, "expected seek out_ok to be true")
	require.True(t, task.readOk, "expected ReadAlloc out_ok to be true")
	require.Equal(t, string(data), string(task.out))
	ReleaseBuffer(task.out)
}

func TestReadAllocOversizedDoesNotPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readalloc-big.txt")
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	// One byte past the pool's largest bucket (1MB): GetBuffer must fall
	// back to a plain allocation instead of slicing past a pooled array's
	// bounds.
	data := make([]byte, 1024*1024+1)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	var handle *Handle
	var out []byte
	var readOk bool
	done := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { done = true }
	opened := false
	afterOpen := evloop.NewMockTask(evloop.Await{})
	afterOpen.OnResume = func(int) { opened = true }
	openThenRead := evloop.NewMockTask(evloop.Await{
		AsyncTask:    Open(false, path, &handle, nil),
		Continuation: afterOpen,
	})
	require.NoError(t, l.Submit(openThenRead))
	drain(t, l, time.Second, func() bool { return opened })
	require.NotNil(t, handle)

	task := evloop.NewMockTask(evloop.Await{
		AsyncTask:    ReadAlloc(handle, uint32(len(data)), &out, &readOk, nil),
		Continuation: final,
	})
	require.NoError(t, l.Submit(task))
	drain(t, l, time.Second, func() bool { return done })

	require.True(t, readOk, "expected ReadAlloc out_ok to be true for an oversized read")
	require.Equal(t, len(data), len(out))
	require.Equal(t, data, out)
	ReleaseBuffer(out)
}

func TestWaitHandleWakesWorker(t *testing.T) {
	l, err := evloop.New(evloop.Config{})
	require.NoError(t, err)

	handle := NewWaitHandle()
	done := false
	final := evloop.NewMockTask(evloop.Await{})
	final.OnResume = func(int) { done = true }
	task := evloop.NewMockTask(evloop.Await{AsyncTask: Wait(handle, nil), Continuation: final})
	require.NoError(t, l.Submit(task))

	time.AfterFunc(50*time.Millisecond, handle.Signal)

	drain(t, l, time.Second, func() bool { return done })
}
