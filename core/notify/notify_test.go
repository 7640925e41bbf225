package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

type recordingNotifier struct {
	name string
	err  error

	mu    sync.Mutex
	got   []string
	calls int
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, res model.SimulationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, res.ID)
	return nil
}

func (r *recordingNotifier) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

type closingNotifier struct {
	recordingNotifier
	closed bool
}

func (c *closingNotifier) Close() error { c.closed = true; return nil }

type notificationSink struct {
	metrics.NopSink
	mu     sync.Mutex
	events []metrics.NotificationEvent
}

func (s *notificationSink) RecordNotification(ev metrics.NotificationEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *notificationSink) snapshot() []metrics.NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metrics.NotificationEvent(nil), s.events...)
}

func TestMultiJoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	a := &recordingNotifier{name: "a", err: errA}
	b := &recordingNotifier{name: "b"}
	c := &closingNotifier{recordingNotifier: recordingNotifier{name: "c"}}
	m := NewMulti(a, b, c)

	err := m.Notify(context.Background(), model.SimulationResult{ID: "r1"})
	require.ErrorIs(t, err, errA)
	assert.Equal(t, []string{"r1"}, b.ids())
	assert.Equal(t, []string{"r1"}, c.ids())

	require.NoError(t, m.Close())
	assert.True(t, c.closed)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &recordingNotifier{name: "flaky", err: errors.New("boom")}
	b := NewBreaker(inner, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, logger.NopLogger{})

	for i := 0; i < 2; i++ {
		err := b.Notify(context.Background(), model.SimulationResult{ID: "r"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Notify(context.Background(), model.SimulationResult{ID: "r"})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls, "open circuit must not reach the sink")
	assert.Equal(t, "flaky", b.Name())
}

func TestBreakerDefaults(t *testing.T) {
	var cfg BreakerConfig
	cfg.SetDefaults()
	assert.Equal(t, uint32(5), cfg.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.OpenTimeout)
	assert.Equal(t, uint32(1), cfg.HalfOpenRequests)
}

func TestForwarderDeliversCompletedResults(t *testing.T) {
	bus := eventbus.New[events.SimulationEvent]()
	good := &recordingNotifier{name: "good"}
	bad := &recordingNotifier{name: "bad", err: errors.New("unreachable")}
	sink := &notificationSink{}
	fw := NewForwarder([]Notifier{good, bad}, sink, time.Second, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := fw.Start(ctx, bus)

	bus.Publish(events.SimulationEvent{Outcome: model.OutcomeInvalidInput})
	bus.Publish(events.SimulationEvent{Outcome: model.OutcomeCompleted, Result: &model.SimulationResult{ID: "r1"}})

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"r1"}, good.ids())

	evs := sink.snapshot()
	assert.Equal(t, "good", evs[0].Sink)
	assert.Empty(t, evs[0].Err)
	assert.Equal(t, "bad", evs[1].Sink)
	assert.Equal(t, "unreachable", evs[1].Err)
	assert.Equal(t, "r1", evs[1].ResultID)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after bus close")
	}
}

func TestForwarderWithoutNotifiersIsDone(t *testing.T) {
	fw := NewForwarder(nil, nil, 0, logger.NopLogger{})
	done := fw.Start(context.Background(), eventbus.New[events.SimulationEvent]())
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}

func TestBuildWrapsConfiguredSinks(t *testing.T) {
	ns, err := Build(Config{Sinks: []factory.ModuleConfig{{Type: "nop"}}}, logger.NopLogger{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	_, ok := ns[0].(*Breaker)
	assert.True(t, ok)
	assert.Equal(t, "nop", ns[0].Name())

	_, err = Build(Config{Sinks: []factory.ModuleConfig{{Type: "carrier-pigeon"}}}, logger.NopLogger{})
	require.Error(t, err)
}
