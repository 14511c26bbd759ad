// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration snapshot and debug introspection layer
// for hioload-tcp.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads
//   - Pipeline counters exported in Prometheus text format
//   - Debug probe registration and state export
package control
