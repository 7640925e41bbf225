package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes the KPIs of the latest completed run as Prometheus gauges,
// together with import and notification counters.
type PromSink struct {
	profit        prometheus.Gauge
	efficiency    prometheus.Gauge
	fuel          *prometheus.GaugeVec
	deliveries    *prometheus.GaugeVec
	imports       *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewPromSink registers the gauges on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		profit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_last_total_profit",
			Help: "Total profit of the latest completed simulation",
		}),
		efficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_last_efficiency_percent",
			Help: "On-time percentage of the latest completed simulation",
		}),
		fuel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_last_fuel_cost",
			Help: "Fuel cost of the latest completed simulation by traffic tier",
		}, []string{"tier"}),
		deliveries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_last_deliveries",
			Help: "Orders of the latest completed simulation by punctuality",
		}, []string{"status"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_import_rows_total",
			Help: "CSV rows processed by bulk imports",
		}, []string{"file", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_notifications_total",
			Help: "Simulation results forwarded to external sinks",
		}, []string{"sink", "status"}),
	}
	var err error
	if s.profit, err = register(reg, s.profit); err != nil {
		return nil, err
	}
	if s.efficiency, err = register(reg, s.efficiency); err != nil {
		return nil, err
	}
	if s.fuel, err = register(reg, s.fuel); err != nil {
		return nil, err
	}
	if s.deliveries, err = register(reg, s.deliveries); err != nil {
		return nil, err
	}
	if s.imports, err = register(reg, s.imports); err != nil {
		return nil, err
	}
	if s.notifications, err = register(reg, s.notifications); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSimulation updates the KPI gauges. Only completed runs carry KPIs.
func (s *PromSink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	if rec.ResultID == "" {
		return nil
	}
	s.profit.Set(rec.KPIs.TotalProfit)
	s.efficiency.Set(rec.KPIs.Efficiency)
	s.fuel.WithLabelValues("high").Set(rec.KPIs.FuelBreakdown.High)
	s.fuel.WithLabelValues("normal").Set(rec.KPIs.FuelBreakdown.Normal)
	s.deliveries.WithLabelValues("on_time").Set(float64(rec.KPIs.OnTime))
	s.deliveries.WithLabelValues("late").Set(float64(rec.KPIs.Late))
	return nil
}

// RecordImport counts loaded and skipped rows of a CSV file.
func (s *PromSink) RecordImport(ev coremetrics.ImportEvent) error {
	s.imports.WithLabelValues(ev.File, "loaded").Add(float64(ev.Loaded))
	s.imports.WithLabelValues(ev.File, "skipped").Add(float64(ev.Skipped))
	return nil
}

// RecordNotification counts a delivery attempt.
func (s *PromSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	status := "ok"
	if ev.Err != "" {
		status = "error"
	}
	s.notifications.WithLabelValues(ev.Sink, status).Inc()
	return nil
}
