package events

import (
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

// SimulationEvent is published after every simulation attempt. Result is set
// only when Outcome is completed.
type SimulationEvent struct {
	Outcome  model.RunOutcome
	Inputs   model.SimulationInput
	Result   *model.SimulationResult
	Err      error
	Duration time.Duration
	Time     time.Time
}
