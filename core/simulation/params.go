package simulation

import (
	"math"
	"regexp"

	"github.com/kilianp07/fleetops/core/model"
)

var startTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Validate checks the run parameters before any data is read. Only the shape
// of StartTime is checked; "99:99" passes.
func Validate(in model.SimulationInput) error {
	if in.NumDrivers < 1 {
		return &InputError{Field: "numDrivers", Reason: "must be at least 1"}
	}
	if math.IsNaN(in.MaxHoursPerDriver) || math.IsInf(in.MaxHoursPerDriver, 0) {
		return &InputError{Field: "maxHoursPerDriver", Reason: "must be a finite number"}
	}
	if in.MaxHoursPerDriver < 0 {
		return &InputError{Field: "maxHoursPerDriver", Reason: "must not be negative"}
	}
	if !startTimePattern.MatchString(in.StartTime) {
		return &InputError{Field: "startTime", Reason: "must match HH:MM"}
	}
	return nil
}
