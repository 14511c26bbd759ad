// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"time"
)

// Option customizes server initialization.
type Option func(*Config)

// WithQueueCapacity sets both packet queue sizes.
func WithQueueCapacity(n int) Option {
	return func(c *Config) {
		c.InboundCapacity = n
		c.OutboundCapacity = n
	}
}

// WithInboundCapacity sets the inbound packet queue size.
func WithInboundCapacity(n int) Option {
	return func(c *Config) {
		c.InboundCapacity = n
	}
}

// WithOutboundCapacity sets the outbound packet queue size.
func WithOutboundCapacity(n int) Option {
	return func(c *Config) {
		c.OutboundCapacity = n
	}
}

// WithReadChunkSize overrides the per-event read size.
func WithReadChunkSize(n int) Option {
	return func(c *Config) {
		c.ReadChunkSize = n
	}
}

// WithWriteRetryInterval overrides the pause between partial writes.
func WithWriteRetryInterval(d time.Duration) Option {
	return func(c *Config) {
		c.WriteRetryInterval = d
	}
}

// WithMaxEvents overrides the reactor batch size.
func WithMaxEvents(n int) Option {
	return func(c *Config) {
		c.MaxEvents = n
	}
}

// WithMultiplexerCPU pins the multiplexer's OS thread to cpu.
// Pinning failures are logged and the loop runs unpinned.
func WithMultiplexerCPU(cpu int) Option {
	return func(c *Config) {
		c.MultiplexerCPU = cpu
	}
}

// WithLogger routes server logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
