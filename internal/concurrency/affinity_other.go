// File: internal/concurrency/affinity_other.go
//go:build !linux
// +build !linux

package concurrency

func platformPinCurrentThread(int) (func() error, error) {
	return nil, ErrAffinityUnsupported
}
