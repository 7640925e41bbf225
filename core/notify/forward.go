package notify

import (
	"context"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
)

// Subscriber is the consuming side of the simulation event bus.
type Subscriber interface {
	Subscribe() <-chan events.SimulationEvent
	Unsubscribe(<-chan events.SimulationEvent)
}

// Forwarder delivers completed results from the event bus to notifiers, off
// the request path.
type Forwarder struct {
	notifiers []Notifier
	sink      metrics.MetricsSink
	timeout   time.Duration
	log       logger.Logger
}

// NewForwarder creates a forwarder. Each notifier is called separately so
// that one slow or failing sink is reported on its own.
func NewForwarder(notifiers []Notifier, sink metrics.MetricsSink, timeout time.Duration, log logger.Logger) *Forwarder {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{notifiers: notifiers, sink: sink, timeout: timeout, log: log}
}

// Start subscribes to bus and forwards events until ctx is canceled or the
// bus is closed. The returned channel is closed when forwarding stops.
func (f *Forwarder) Start(ctx context.Context, bus Subscriber) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || len(f.notifiers) == 0 {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	monitoring.Go(func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Outcome != model.OutcomeCompleted || ev.Result == nil {
					continue
				}
				f.Deliver(ctx, *ev.Result)
			}
		}
	})
	return done
}

// Deliver sends res to every notifier and records one notification event per sink.
func (f *Forwarder) Deliver(ctx context.Context, res model.SimulationResult) {
	for _, n := range f.notifiers {
		start := time.Now()
		cctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := n.Notify(cctx, res)
		cancel()
		ev := metrics.NotificationEvent{
			Sink:     n.Name(),
			ResultID: res.ID,
			Latency:  time.Since(start),
			Time:     time.Now(),
		}
		if err != nil {
			ev.Err = err.Error()
			f.log.Warnf("notify %s for result %s failed: %v", n.Name(), res.ID, err)
		} else {
			f.log.Debugf("notified %s for result %s", n.Name(), res.ID)
		}
		if rec, ok := f.sink.(metrics.NotificationRecorder); ok {
			if err := rec.RecordNotification(ev); err != nil {
				f.log.Errorf("notification metrics error: %v", err)
			}
		}
	}
}
