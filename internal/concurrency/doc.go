// Package concurrency provides the blocking primitives shared by the
// multiplexer and the packet dispatchers.
package concurrency
