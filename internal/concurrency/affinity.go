// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU affinity for long-lived loop goroutines.

package concurrency

import (
	"fmt"
	"runtime"
)

// PinCurrentThread locks the calling goroutine to its OS thread and binds
// that thread to cpu. The returned unpin restores the thread's previous
// affinity and unlocks it; it must be called from the same goroutine.
func PinCurrentThread(cpu int) (unpin func(), err error) {
	if cpu < 0 {
		return nil, fmt.Errorf("cpu %d: negative index", cpu)
	}
	runtime.LockOSThread()
	restore, err := platformPinCurrentThread(cpu)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		_ = restore()
		runtime.UnlockOSThread()
	}, nil
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
