//go:build !linux

package fileops

import "fmt"

// setAffinity is a no-op stub on platforms without SchedSetaffinity.
func setAffinity(cpu int) error {
	return fmt.Errorf("cpu affinity not supported on this platform")
}
