package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/infra/logger"
)

type fakeWriter struct {
	errs   []error
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func testConfig() Config {
	cfg := Config{Brokers: []string{"localhost:9092"}, Backoff: time.Millisecond}
	cfg.SetDefaults()
	return cfg
}

func TestNotifyWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, testConfig())
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := p.Notify(context.Background(), model.SimulationResult{ID: "r1", CreatedAt: created})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "r1", string(msg.Key))
	assert.Equal(t, created, msg.Time)

	var decoded model.SimulationResult
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "r1", decoded.ID)
}

func TestNotifyRetriesThenFails(t *testing.T) {
	boom := errors.New("leader not available")
	w := &fakeWriter{errs: []error{boom, boom, boom}}
	p := newProducer(w, testConfig())

	err := p.Notify(context.Background(), model.SimulationResult{ID: "r1"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, w.msgs, 3)
}

func TestNotifyRecoversAfterTransientError(t *testing.T) {
	w := &fakeWriter{errs: []error{errors.New("transient")}}
	p := newProducer(w, testConfig())
	require.NoError(t, p.Notify(context.Background(), model.SimulationResult{ID: "r1"}))
	assert.Len(t, w.msgs, 2)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewProducer(Config{})
	require.Error(t, err)

	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, "fleetops.simulations", p.topic)
	require.NoError(t, p.Close())
}

func TestFactoryRegistration(t *testing.T) {
	ns, err := notify.Build(notify.Config{Sinks: []factory.ModuleConfig{{
		Type: "kafka",
		Conf: map[string]any{"brokers": "a:9092,b:9092", "topic": "results", "write_timeout": "2s"},
	}}}, logger.NopLogger{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "kafka", ns[0].Name())
}
