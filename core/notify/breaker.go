package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
)

// ErrCircuitOpen is returned while a failing sink is being skipped.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes the circuit breaker placed in front of each sink.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32        `json:"max_failures"`
	OpenTimeout time.Duration `json:"open_timeout"`
	// HalfOpenRequests is how many probes are let through once the timeout expires.
	HalfOpenRequests uint32 `json:"half_open_requests"`
}

// SetDefaults fills missing values.
func (c *BreakerConfig) SetDefaults() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
}

// Breaker guards a Notifier with a circuit breaker.
type Breaker struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. State changes are logged as warnings.
func NewBreaker(next Notifier, cfg BreakerConfig, log logger.Logger) *Breaker {
	cfg.SetDefaults()
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("notifier %s circuit %s -> %s", name, from, to)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Name() string { return b.next.Name() }

// Notify forwards the result unless the circuit is open.
func (b *Breaker) Notify(ctx context.Context, res model.SimulationResult) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Notify(ctx, res)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.next.Name(), ErrCircuitOpen)
	}
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Close closes the wrapped notifier when it holds resources.
func (b *Breaker) Close() error {
	if c, ok := b.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
