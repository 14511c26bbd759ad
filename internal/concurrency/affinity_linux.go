// File: internal/concurrency/affinity_linux.go
//go:build linux
// +build linux

package concurrency

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxCPUs matches the kernel's default CPU_SETSIZE.
const maxCPUs = 1024

// platformPinCurrentThread binds the thread to cpu and returns a function
// restoring the mask it had before.
func platformPinCurrentThread(cpu int) (func() error, error) {
	prev, err := currentAffinity()
	if err != nil {
		return nil, fmt.Errorf("sched_getaffinity: %w", err)
	}
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("sched_setaffinity cpu %d: %w", cpu, err)
	}
	return func() error {
		return unix.SchedSetaffinity(0, &prev)
	}, nil
}

// currentAffinity reports the CPUs the calling thread may run on.
func currentAffinity() (unix.CPUSet, error) {
	var set unix.CPUSet
	err := unix.SchedGetaffinity(0, &set)
	return set, err
}
