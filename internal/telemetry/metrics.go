// Package telemetry exposes the scanner's operational surface: Prometheus
// metrics and the read-only HTTP endpoints.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus instruments for the scanner.
type Metrics struct {
	TickDuration prometheus.Histogram
	TicksTotal   prometheus.Counter

	CombosScanned  prometheus.Counter
	SpreadOK       prometheus.Counter
	SignalsEmitted prometheus.Counter
	SignalsBlocked prometheus.Counter

	PriceRecords prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers every instrument on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbscan_tick_duration_seconds",
			Help:    "Duration of one full scan tick in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0},
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_ticks_total",
			Help: "Total number of scan ticks executed",
		}),
		CombosScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_combos_scanned_total",
			Help: "Total venue combinations evaluated",
		}),
		SpreadOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_spread_ok_total",
			Help: "Combinations whose nominal spread cleared the threshold",
		}),
		SignalsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_signals_emitted_total",
			Help: "Alerts dispatched",
		}),
		SignalsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_signals_blocked_total",
			Help: "Valid signals the gate blocked (cooldown or blacklist)",
		}),
		PriceRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbscan_price_records",
			Help: "Records in the latest price union",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.TickDuration, m.TicksTotal,
		m.CombosScanned, m.SpreadOK,
		m.SignalsEmitted, m.SignalsBlocked,
		m.PriceRecords,
	)
	return m
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
