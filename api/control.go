// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "io"

// Control exposes runtime configuration, metrics and debug probes.
type Control interface {
	GetConfig() map[string]any
	Stats() map[string]any
	RegisterDebugProbe(name string, fn func() any)
	WritePrometheus(w io.Writer)
}
