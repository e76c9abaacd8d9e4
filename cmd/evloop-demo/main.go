package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	evloop "github.com/ehrlich-b/go-evloop"
	"github.com/ehrlich-b/go-evloop/fileops"
	"github.com/ehrlich-b/go-evloop/internal/logging"
)

// demoTask drives the open -> write -> seek -> read-back -> close
// scenario: open path with create=true, write payload, seek to the start,
// read the payload back through the pooled-buffer ReadAlloc path, assert
// each out_ok, close the handle, then signal done.
type demoTask struct {
	step    int
	path    string
	payload []byte
	handle  *fileops.Handle
	writeOk bool
	seekOk  bool
	readOk  bool
	readBuf []byte
	opts    *fileops.Options
	done    chan<- error
}

func (d *demoTask) Resume(l *evloop.Loop) (evloop.Await, error) {
	switch d.step {
	case 0:
		d.step++
		return evloop.Await{AsyncTask: fileops.Open(true, d.path, &d.handle, d.opts), Continuation: d}, nil
	case 1:
		d.step++
		return evloop.Await{AsyncTask: fileops.Write(d.handle, d.payload, &d.writeOk, d.opts), Continuation: d}, nil
	case 2:
		d.step++
		if !d.writeOk {
			d.done <- fmt.Errorf("write reported out_ok=false")
		}
		return evloop.Await{AsyncTask: fileops.SeekAbsolute(d.handle, 0, &d.seekOk, d.opts), Continuation: d}, nil
	case 3:
		d.step++
		if !d.seekOk {
			d.done <- fmt.Errorf("seek reported out_ok=false")
		}
		return evloop.Await{AsyncTask: fileops.ReadAlloc(d.handle, uint32(len(d.payload)), &d.readBuf, &d.readOk, d.opts), Continuation: d}, nil
	case 4:
		d.step++
		if !d.readOk {
			d.done <- fmt.Errorf("read-back reported out_ok=false")
		}
		return evloop.Await{AsyncTask: fileops.Close(d.handle, d.opts), Continuation: d}, nil
	default:
		close(d.done)
		return evloop.Await{}, nil
	}
}

func (d *demoTask) Drop(l *evloop.Loop) {}

func main() {
	var (
		path    = flag.String("path", "evloop-demo.txt", "path to open/write/close")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	metrics := evloop.NewMetrics()
	l, err := evloop.New(evloop.Config{Logger: logger, Observer: metrics})
	if err != nil {
		log.Fatalf("creating loop: %v", err)
	}
	defer l.Destroy()

	done := make(chan error, 1)
	task := &demoTask{
		path:    *path,
		payload: []byte("Hello world!\n"),
		opts:    &fileops.Options{Logger: logger, Observer: metrics},
		done:    done,
	}
	if err := l.Submit(task); err != nil {
		log.Fatalf("submitting demo task: %v", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		select {
		case err, ok := <-done:
			if ok && err != nil {
				log.Fatalf("demo task failed: %v", err)
			}
			if task.readBuf != nil {
				fmt.Fprintf(os.Stdout, "read back: %q\n", string(task.readBuf))
				fileops.ReleaseBuffer(task.readBuf)
			}
			printSnapshot(metrics.Snapshot())
			return
		default:
		}
		if time.Now().After(deadline) {
			log.Fatalf("demo task did not complete within 500ms")
		}
		if l.Len() == 0 {
			if _, err := l.Park(50 * time.Millisecond); err != nil {
				log.Fatalf("park: %v", err)
			}
		}
		if err := l.RunUntil(evloop.AlwaysTrue); err != nil {
			log.Fatalf("run_until: %v", err)
		}
	}
}

func printSnapshot(s evloop.MetricsSnapshot) {
	fmt.Fprintf(os.Stdout, "submits=%d resumes=%d (async=%d) park_wakeups=%d park_timeouts=%d\n",
		s.Submits, s.ResumesTotal, s.ResumesAsync, s.ParkWakeups, s.ParkTimeouts)
	fmt.Fprintf(os.Stdout, "file ops: open=%d close=%d read=%d write=%d seek=%d other=%d\n",
		s.FileOps[0], s.FileOps[1], s.FileOps[2], s.FileOps[3], s.FileOps[4], s.FileOps[5])
	fmt.Fprintf(os.Stdout, "avg_latency=%dns uptime=%s\n", s.AvgLatencyNs, time.Duration(s.UptimeNs))
}
