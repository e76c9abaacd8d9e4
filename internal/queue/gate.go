package queue

import (
	"sync"
	"time"
)

// Gate couples the segmented ready queue (component A) to the mutex +
// condition-variable park/notify mechanism (component B). It assumes a
// single consumer: concurrent Submit callers are fine (multi-producer),
// but only one goroutine should call Park/Pop at a time, matching the
// "single-consumer queue" scope of this runtime.
type Gate struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue *segQueue
	// seq counts real Submit-driven wakeups. A Park's timer goroutine
	// broadcasts without bumping seq, so Park can tell a timeout apart
	// from a genuine signal even though both resume the same Wait call.
	seq uint64
}

// NewGate builds a Gate whose ready queue uses segments of the given
// capacity. A capacity <= 0 uses DefaultSegmentCapacity.
func NewGate(segmentCapacity int) *Gate {
	g := &Gate{queue: newSegQueue(segmentCapacity)}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Submit pushes an entry and signals any parked consumer. Submit never
// fails in this implementation (Go's allocator failure is unrecoverable,
// unlike the reference's malloc-based segments), but keeps an error return
// so callers that wrap it can surface allocator-style failures uniformly.
func (g *Gate) Submit(e Entry) error {
	g.mu.Lock()
	g.queue.push(e)
	g.seq++
	g.cond.Signal()
	g.mu.Unlock()
	return nil
}

// Pop removes the oldest entry without blocking. ok is false on an empty
// queue; the caller (the loop) must not block here — that's what Park is
// for.
func (g *Gate) Pop() (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.pop()
}

// Len reports the number of entries currently queued, across all segments.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.len()
}

// Segments reports how many segments are presently linked. Exposed for the
// segment-rollover test (spec §8 scenario 6).
func (g *Gate) Segments() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.segments()
}

// RemovePending tombstones e in the ready queue if it is still present and
// not yet popped. Reports whether it was found.
func (g *Gate) RemovePending(e Entry) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.removePending(e)
}

// Park blocks the caller until either a Submit signals it or timeout
// elapses, whichever comes first. If the queue already holds entries when
// Park is called, it returns at once with timedOut false, so a Submit that
// lands just before Park is not lost. Park distinguishes "woken by timeout"
// from "woken by submit" via the seq counter and its own timer's fired
// flag, and goes back to waiting on any other wakeup (such as a broadcast
// from an earlier Park's timer that fired late).
func (g *Gate) Park(timeout time.Duration) (timedOut bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.queue.len() > 0 {
		return false
	}
	seqAtStart := g.seq
	fired := false
	timer := time.AfterFunc(timeout, func() {
		g.mu.Lock()
		fired = true
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	for g.seq == seqAtStart && !fired {
		g.cond.Wait()
	}
	timer.Stop()
	return g.seq == seqAtStart
}
