package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	simulationRuns     *prometheus.CounterVec
	simulationDuration prometheus.Histogram
	ordersProcessed    *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, *prometheus.CounterVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_runs_total",
			Help: "Simulation attempts by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_duration_seconds",
			Help:    "Wall time of simulation attempts, snapshot and persistence included",
			Buckets: prometheus.DefBuckets,
		},
	)
	orders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_orders_total",
			Help: "Orders processed by completed simulations, by status",
		},
		[]string{"status"},
	)
	return runs, dur, orders
}

func init() {
	simulationRuns, simulationDuration, ordersProcessed = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers simulation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(simulationRuns, simulationDuration, ordersProcessed)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	simulationRuns, simulationDuration, ordersProcessed = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
