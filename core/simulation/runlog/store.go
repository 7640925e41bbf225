// Package runlog keeps an audit trail of simulation attempts, including the
// ones rejected before any data was read.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// Record captures one simulation attempt.
type Record struct {
	Timestamp time.Time             `json:"timestamp"`
	Inputs    model.SimulationInput `json:"inputs"`
	Outcome   model.RunOutcome      `json:"outcome"`
	ResultID  string                `json:"result_id,omitempty"`
	KPIs      *model.KPIs           `json:"kpis,omitempty"`
	// Unassigned lists orders that received no driver.
	Unassigned []string `json:"unassigned,omitempty"`
	DurationMS float64  `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start   time.Time
	End     time.Time
	Outcome model.RunOutcome
	Limit   int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// Store persists Records and supports querying. Query returns records oldest
// first.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// Config selects and tunes the run log backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "data/simulation_runs.jsonl"
		case "sqlite":
			c.Path = "data/simulation_runs.db"
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "none", "jsonl", "sqlite":
		return nil
	default:
		return fmt.Errorf("run_log.backend %q is not supported", c.Backend)
	}
}

// Open builds the configured store.
func Open(c Config) (Store, error) {
	switch c.Backend {
	case "", "none":
		return NopStore{}, nil
	case "jsonl":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("unknown run log backend %q", c.Backend)
	}
}

func limit(recs []Record, n int) []Record {
	if n > 0 && len(recs) > n {
		return recs[len(recs)-n:]
	}
	return recs
}
