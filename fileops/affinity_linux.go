//go:build linux

package fileops

import "golang.org/x/sys/unix"

// setAffinity pins the calling (already LockOSThread'd) goroutine's thread
// to cpu. Matches the teacher's runner.go round-robin affinity assignment,
// narrowed here to a single CPU per worker since each file operation gets
// its own short-lived thread rather than a long-lived per-queue one.
func setAffinity(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
