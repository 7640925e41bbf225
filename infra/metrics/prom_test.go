package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

func TestPromSink_RecordSimulation(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	rec := coremetrics.SimulationRecord{
		ResultID: "r1",
		Outcome:  model.OutcomeCompleted,
		KPIs: model.KPIs{
			TotalProfit:   400,
			Efficiency:    50,
			OnTime:        1,
			Late:          1,
			FuelBreakdown: model.FuelBreakdown{High: 70, Normal: 50},
		},
	}
	if err := sink.RecordSimulation(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.profit); v != 400 {
		t.Fatalf("profit gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.fuel.WithLabelValues("high")); v != 70 {
		t.Fatalf("high fuel gauge = %v", v)
	}
	if v := testutil.ToFloat64(sink.deliveries.WithLabelValues("late")); v != 1 {
		t.Fatalf("late gauge = %v", v)
	}

	// Rejected runs leave the gauges untouched.
	if err := sink.RecordSimulation(coremetrics.SimulationRecord{Outcome: model.OutcomeInvalidInput}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.profit); v != 400 {
		t.Fatalf("profit gauge changed to %v", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordImport(coremetrics.ImportEvent{File: "drivers.csv", Loaded: 3, Skipped: 1})
	_ = second.RecordImport(coremetrics.ImportEvent{File: "drivers.csv", Loaded: 2})
	if v := testutil.ToFloat64(first.imports.WithLabelValues("drivers.csv", "loaded")); v != 5 {
		t.Fatalf("loaded rows = %v", v)
	}
	_ = second.RecordNotification(coremetrics.NotificationEvent{Sink: "mqtt", Err: "timeout"})
	if v := testutil.ToFloat64(first.notifications.WithLabelValues("mqtt", "error")); v != 1 {
		t.Fatalf("notification errors = %v", v)
	}
}
