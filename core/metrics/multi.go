package metrics

import "errors"

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSimulation forwards the record to every sink. All sinks are called;
// their errors are joined.
func (m *MultiSink) RecordSimulation(rec SimulationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSimulation(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordImport forwards import events to sinks that support them.
func (m *MultiSink) RecordImport(ev ImportEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ImportRecorder); ok {
			if err := rec.RecordImport(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordNotification forwards notification events to sinks that support them.
func (m *MultiSink) RecordNotification(ev NotificationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(NotificationRecorder); ok {
			if err := rec.RecordNotification(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
