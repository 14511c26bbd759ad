// Package control
// Author: momentics <momentics@gmail.com>
//
// Controller implements api.Control on top of the control primitives.

package control

import (
	"io"

	"github.com/momentics/hioload-tcp/api"
)

// Controller glues config snapshot, metrics and debug probes together.
type Controller struct {
	config  *ConfigStore
	metrics *Metrics
	debug   *DebugProbes
}

var _ api.Control = (*Controller)(nil)

// NewController builds a Controller with platform probes registered.
func NewController() *Controller {
	c := &Controller{
		config:  NewConfigStore(),
		metrics: NewMetrics(),
		debug:   NewDebugProbes(),
	}
	RegisterPlatformProbes(c.debug)
	return c
}

func (c *Controller) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig records configuration values for later inspection.
func (c *Controller) SetConfig(cfg map[string]any) {
	c.config.SetConfig(cfg)
}

// Stats merges counters and debug probes, the latter prefixed "debug.".
func (c *Controller) Stats() map[string]any {
	combined := c.metrics.GetSnapshot()
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// Metrics exposes the counters for the pipeline components.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

func (c *Controller) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *Controller) WritePrometheus(w io.Writer) {
	c.metrics.WritePrometheus(w)
}
