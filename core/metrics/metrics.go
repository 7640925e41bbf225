package metrics

import (
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// SimulationRecord summarises one simulation attempt.
type SimulationRecord struct {
	ResultID   string
	Outcome    model.RunOutcome
	Inputs     model.SimulationInput
	KPIs       model.KPIs
	Allocated  int
	Unassigned int
	Duration   time.Duration
	Time       time.Time
}

// MetricsSink records simulation runs for observability purposes.
type MetricsSink interface {
	RecordSimulation(rec SimulationRecord) error
}

// ImportEvent captures the outcome of loading one CSV file.
type ImportEvent struct {
	File    string
	Loaded  int
	Skipped int
	Time    time.Time
}

// ImportRecorder records bulk data imports.
type ImportRecorder interface {
	RecordImport(ev ImportEvent) error
}

// NotificationEvent captures delivery of a result to an external sink.
type NotificationEvent struct {
	Sink     string
	ResultID string
	Err      string
	Latency  time.Duration
	Time     time.Time
}

// NotificationRecorder records result notifications.
type NotificationRecorder interface {
	RecordNotification(ev NotificationEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSimulation(SimulationRecord) error    { return nil }
func (NopSink) RecordImport(ImportEvent) error             { return nil }
func (NopSink) RecordNotification(NotificationEvent) error { return nil }
