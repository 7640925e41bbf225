package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/simulation/runlog"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// Runner executes simulations against a data store and records their
// outcome. Concurrent runs share nothing but the injected collaborators.
type Runner struct {
	engine  *Engine
	data    store.Snapshotter
	results store.ResultRepository
	metrics metrics.MetricsSink
	bus     eventbus.Publisher[events.SimulationEvent]
	logger  logger.Logger

	mu   sync.RWMutex
	runs runlog.Store

	now   func() time.Time
	newID func() string
}

// NewRunner creates a runner. sink and bus may be nil.
func NewRunner(data store.Snapshotter, results store.ResultRepository, sink metrics.MetricsSink, bus eventbus.Publisher[events.SimulationEvent], log logger.Logger) (*Runner, error) {
	if data == nil || results == nil || log == nil {
		return nil, fmt.Errorf("simulation: nil parameter provided to NewRunner")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Runner{
		engine:  NewEngine(),
		data:    data,
		results: results,
		metrics: sink,
		bus:     bus,
		logger:  log,
		runs:    runlog.NopStore{},
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// SetRunLog configures the store used to audit simulation attempts.
func (r *Runner) SetRunLog(s runlog.Store) {
	if s == nil {
		s = runlog.NopStore{}
	}
	r.mu.Lock()
	r.runs = s
	r.mu.Unlock()
}

// RunLog returns the configured audit store.
func (r *Runner) RunLog() runlog.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

// Run validates the input, simulates on a fresh snapshot and persists the
// result. Nothing is persisted when any step fails.
func (r *Runner) Run(ctx context.Context, in model.SimulationInput) (model.SimulationResult, error) {
	start := r.now()
	if err := Validate(in); err != nil {
		r.finish(ctx, start, in, nil, nil, err)
		return model.SimulationResult{}, err
	}
	snap, err := r.data.Snapshot(ctx)
	if err != nil {
		err = fmt.Errorf("load snapshot: %w", err)
		r.finish(ctx, start, in, nil, nil, err)
		return model.SimulationResult{}, err
	}
	report, err := r.engine.Simulate(in, snap.Drivers, snap.Orders, snap.Routes)
	if err != nil {
		r.finish(ctx, start, in, nil, nil, err)
		return model.SimulationResult{}, err
	}
	res := model.SimulationResult{
		ID:          r.newID(),
		CreatedAt:   r.now().UTC(),
		Inputs:      in,
		KPIs:        report.KPIs,
		Allocations: report.Allocations,
	}
	if err := r.results.SaveResult(ctx, res); err != nil {
		err = fmt.Errorf("save result: %w", err)
		r.finish(ctx, start, in, nil, nil, err)
		return model.SimulationResult{}, err
	}
	r.finish(ctx, start, in, &res, report.Unassigned, nil)
	return res, nil
}

// History lists stored results, newest first.
func (r *Runner) History(ctx context.Context) ([]model.SimulationResult, error) {
	res, err := r.results.ListResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return res, nil
}

// OutcomeOf classifies a run error.
func OutcomeOf(err error) model.RunOutcome {
	switch {
	case err == nil:
		return model.OutcomeCompleted
	case errors.Is(err, ErrInvalidInput):
		return model.OutcomeInvalidInput
	case errors.Is(err, ErrInsufficientDrivers):
		return model.OutcomeInsufficientDrivers
	default:
		return model.OutcomeError
	}
}

func (r *Runner) finish(ctx context.Context, start time.Time, in model.SimulationInput, res *model.SimulationResult, unassigned []string, runErr error) {
	end := r.now()
	elapsed := end.Sub(start)
	outcome := OutcomeOf(runErr)

	simulationRuns.WithLabelValues(string(outcome)).Inc()
	simulationDuration.Observe(elapsed.Seconds())

	rec := metrics.SimulationRecord{Outcome: outcome, Inputs: in, Duration: elapsed, Time: end}
	logRec := runlog.Record{
		Timestamp:  end,
		Inputs:     in,
		Outcome:    outcome,
		Unassigned: unassigned,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
	}
	if res != nil {
		rec.ResultID = res.ID
		rec.KPIs = res.KPIs
		rec.Allocated = len(res.Allocations)
		rec.Unassigned = len(unassigned)
		ordersProcessed.WithLabelValues(StatusAssigned.String()).Add(float64(rec.Allocated))
		ordersProcessed.WithLabelValues(StatusRejected.String()).Add(float64(rec.Unassigned))
		kpis := res.KPIs
		logRec.ResultID = res.ID
		logRec.KPIs = &kpis
		r.logger.Infof("simulation %s completed: %d allocated, %d unassigned, profit %.2f, efficiency %.1f%%",
			res.ID, rec.Allocated, rec.Unassigned, res.KPIs.TotalProfit, res.KPIs.Efficiency)
	}
	if runErr != nil {
		logRec.Error = runErr.Error()
		if outcome == model.OutcomeError {
			r.logger.Errorf("simulation failed: %v", runErr)
			monitoring.CaptureException(runErr, map[string]string{"component": "simulation"})
		} else {
			r.logger.Warnf("simulation rejected: %v", runErr)
		}
	}

	if err := r.metrics.RecordSimulation(rec); err != nil {
		r.logger.Errorf("simulation metrics error: %v", err)
	}
	if err := r.RunLog().Append(context.WithoutCancel(ctx), logRec); err != nil {
		r.logger.Errorf("run log append failed: %v", err)
	}
	if r.bus != nil {
		r.bus.Publish(events.SimulationEvent{
			Outcome:  outcome,
			Inputs:   in,
			Result:   res,
			Err:      runErr,
			Duration: elapsed,
			Time:     end,
		})
	}
}
