// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Pipeline counters backed by a private VictoriaMetrics set, so several
// servers in one process never share series.

package control

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics holds the counters updated by the multiplexer and dispatchers.
type Metrics struct {
	set *metrics.Set

	Accepted      *metrics.Counter
	Closed        *metrics.Counter
	ReceivedBytes *metrics.Counter
	SentBytes     *metrics.Counter
	WriteFailures *metrics.Counter
	PoolMisses    *metrics.Counter
}

// NewMetrics creates an empty counter set.
func NewMetrics() *Metrics {
	s := metrics.NewSet()
	return &Metrics{
		set:           s,
		Accepted:      s.NewCounter("hioload_tcp_accepted_total"),
		Closed:        s.NewCounter("hioload_tcp_closed_total"),
		ReceivedBytes: s.NewCounter("hioload_tcp_received_bytes_total"),
		SentBytes:     s.NewCounter("hioload_tcp_sent_bytes_total"),
		WriteFailures: s.NewCounter("hioload_tcp_write_failures_total"),
		PoolMisses:    s.NewCounter("hioload_tcp_pool_misses_total"),
	}
}

// Gauge registers a callback gauge, e.g. a queue length.
func (m *Metrics) Gauge(name string, fn func() float64) {
	m.set.GetOrCreateGauge(name, fn)
}

// GetSnapshot returns the current counter values keyed by short name.
func (m *Metrics) GetSnapshot() map[string]any {
	return map[string]any{
		"accepted_total":       m.Accepted.Get(),
		"closed_total":         m.Closed.Get(),
		"received_bytes_total": m.ReceivedBytes.Get(),
		"sent_bytes_total":     m.SentBytes.Get(),
		"write_failures_total": m.WriteFailures.Get(),
		"pool_misses_total":    m.PoolMisses.Get(),
	}
}

// WritePrometheus writes every series in Prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
