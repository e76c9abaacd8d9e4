package evloop

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering from 1us to 1s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,         // 1us
	10_000,        // 10us
	100_000,       // 100us
	1_000_000,     // 1ms
	10_000_000,    // 10ms
	100_000_000,   // 100ms
	1_000_000_000, // 1s
}

const numLatencyBuckets = 7

// Metrics tracks loop and file-operation statistics. It implements
// interfaces.Observer, so it can be passed directly as Config.Observer.
type Metrics struct {
	Submits      atomic.Uint64
	ParkWakeups  atomic.Uint64
	ParkTimeouts atomic.Uint64
	ResumesTotal atomic.Uint64
	ResumesAsync atomic.Uint64

	FileOps       [6]atomic.Uint64 // indexed by fileOpIndex
	FileOpErrors  [6]atomic.Uint64
	FileOpBytes   [6]atomic.Uint64
	LatencyTotal  atomic.Uint64
	LatencyCount  atomic.Uint64
	LatencyBucket [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// fileOpIndex maps an operation name to a Metrics array slot. Unknown
// operation names are tracked under a shared "other" slot rather than
// dropped.
func fileOpIndex(op string) int {
	switch op {
	case "open":
		return 0
	case "close":
		return 1
	case "read":
		return 2
	case "write":
		return 3
	case "seek":
		return 4
	default:
		return 5
	}
}

// NewMetrics creates a ready-to-use Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveSubmit implements interfaces.Observer.
func (m *Metrics) ObserveSubmit(queueDepth int) {
	m.Submits.Add(1)
}

// ObservePark implements interfaces.Observer.
func (m *Metrics) ObservePark(timedOut bool, waitNs uint64) {
	if timedOut {
		m.ParkTimeouts.Add(1)
	} else {
		m.ParkWakeups.Add(1)
	}
}

// ObserveResume implements interfaces.Observer.
func (m *Metrics) ObserveResume(hadAsync bool) {
	m.ResumesTotal.Add(1)
	if hadAsync {
		m.ResumesAsync.Add(1)
	}
}

// ObserveFileOp implements interfaces.Observer.
func (m *Metrics) ObserveFileOp(op string, bytes uint64, latencyNs uint64, success bool) {
	idx := fileOpIndex(op)
	m.FileOps[idx].Add(1)
	if !success {
		m.FileOpErrors[idx].Add(1)
	}
	m.FileOpBytes[idx].Add(bytes)

	m.LatencyTotal.Add(latencyNs)
	m.LatencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBucket[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// further synchronization.
type MetricsSnapshot struct {
	Submits      uint64
	ParkWakeups  uint64
	ParkTimeouts uint64
	ResumesTotal uint64
	ResumesAsync uint64

	FileOps      [6]uint64
	FileOpErrors [6]uint64
	FileOpBytes  [6]uint64

	AvgLatencyNs     uint64
	LatencyHistogram [numLatencyBuckets]uint64
	UptimeNs         int64
}

// Snapshot copies out the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Submits:      m.Submits.Load(),
		ParkWakeups:  m.ParkWakeups.Load(),
		ParkTimeouts: m.ParkTimeouts.Load(),
		ResumesTotal: m.ResumesTotal.Load(),
		ResumesAsync: m.ResumesAsync.Load(),
		UptimeNs:     time.Now().UnixNano() - m.StartTime.Load(),
	}
	for i := range m.FileOps {
		snap.FileOps[i] = m.FileOps[i].Load()
		snap.FileOpErrors[i] = m.FileOpErrors[i].Load()
		snap.FileOpBytes[i] = m.FileOpBytes[i].Load()
	}
	for i := range m.LatencyBucket {
		snap.LatencyHistogram[i] = m.LatencyBucket[i].Load()
	}
	if count := m.LatencyCount.Load(); count > 0 {
		snap.AvgLatencyNs = m.LatencyTotal.Load() / count
	}
	return snap
}
