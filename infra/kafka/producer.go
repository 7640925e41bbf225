// Package kafka publishes simulation results to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/infra/logger"
)

// Config contains the producer settings.
type Config struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	MaxAttempts  int           `json:"max_attempts"`
	WriteTimeout time.Duration `json:"write_timeout"`
	// Backoff is the first retry delay; it doubles up to two seconds.
	Backoff time.Duration `json:"backoff"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "fleetops.simulations"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Backoff == 0 {
		c.Backoff = 100 * time.Millisecond
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka: topic required")
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes each completed result as one message keyed by result ID.
type Producer struct {
	writer      messageWriter
	topic       string
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration
	logger      logger.Logger
}

// NewProducer constructs a Producer backed by a kafka-go Writer.
func NewProducer(cfg Config) (*Producer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newProducer(w, cfg), nil
}

func newProducer(w messageWriter, cfg Config) *Producer {
	return &Producer{
		writer:      w,
		topic:       cfg.Topic,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.WriteTimeout,
		backoff:     cfg.Backoff,
		logger:      logger.New("kafka_producer"),
	}
}

func (p *Producer) Name() string { return "kafka" }

// Notify writes res to the topic, retrying transient failures.
func (p *Producer) Notify(ctx context.Context, res model.SimulationResult) error {
	value, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(res.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "result-id", Value: []byte(res.ID)},
		},
		Time: res.CreatedAt,
	}

	var lastErr error
	backoff := p.backoff
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.writer.WriteMessages(actx, msg)
		cancel()
		if err == nil {
			p.logger.Debugf("produced result %s to %s", res.ID, p.topic)
			return nil
		}
		lastErr = err
		p.logger.Warnf("produce attempt %d for %s failed: %v", attempt, res.ID, err)
		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("produce failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
