// Package metrics exposes prometheus counters for persistence and bus traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one surface process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PersistWrites *prometheus.CounterVec
	BusMessages   *prometheus.CounterVec
	BusEchoes     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PersistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Durable envelope writes by record and result.",
		}, []string{"record", "result"}),
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily",
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Bus messages by topic and direction.",
		}, []string{"topic", "direction"}),
		BusEchoes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daily",
			Subsystem: "bus",
			Name:      "echoes_dropped_total",
			Help:      "Sync payloads discarded because this surface published them.",
		}, []string{"topic"}),
	}
	reg.MustRegister(
		m.PersistWrites,
		m.BusMessages,
		m.BusEchoes,
		collectors.NewGoCollector(),
	)
	return m
}

// PersistWrite counts one envelope write.
func (m *Metrics) PersistWrite(record string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PersistWrites.WithLabelValues(record, result).Inc()
}

// BusMessage counts one message; direction is "out", "in" or "dropped".
func (m *Metrics) BusMessage(topic, direction string) {
	if m == nil {
		return
	}
	m.BusMessages.WithLabelValues(topic, direction).Inc()
}

// BusEcho counts one discarded echo.
func (m *Metrics) BusEcho(topic string) {
	if m == nil {
		return
	}
	m.BusEchoes.WithLabelValues(topic).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
