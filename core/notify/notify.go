// Package notify forwards completed simulation results to external systems
// such as MQTT brokers, Kafka topics and object storage.
package notify

import (
	"context"
	"errors"

	"github.com/kilianp07/fleetops/core/model"
)

// Notifier delivers a simulation result to one external sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, res model.SimulationResult) error
}

// Closer is implemented by notifiers holding connections.
type Closer interface {
	Close() error
}

// Nop discards results.
type Nop struct{}

func (Nop) Name() string                                         { return "nop" }
func (Nop) Notify(context.Context, model.SimulationResult) error { return nil }

// Multi delivers to every notifier, even when some fail.
type Multi struct {
	Notifiers []Notifier
}

// NewMulti returns a Multi over ns.
func NewMulti(ns ...Notifier) *Multi { return &Multi{Notifiers: ns} }

func (m *Multi) Name() string { return "multi" }

// Notify calls every notifier and joins their errors.
func (m *Multi) Notify(ctx context.Context, res model.SimulationResult) error {
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Notify(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier that holds resources.
func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.Notifiers {
		if c, ok := n.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
