package simulation

import (
	"slices"

	"github.com/kilianp07/fleetops/core/model"
)

// DriverState is the per-run view of a driver. Fatigue is fixed when the
// fleet is built; RemainingHours only decreases.
type DriverState struct {
	DriverID       string
	Name           string
	RemainingHours float64
	Fatigued       bool
}

// BuildFleet selects the n oldest drivers by creation time and gives each a
// fresh budget of maxHours. Drivers created at the same instant keep their
// snapshot order. The input slice is not modified.
func BuildFleet(drivers []model.Driver, n int, maxHours float64) ([]*DriverState, error) {
	if len(drivers) < n {
		return nil, &InsufficientDriversError{Requested: n, Available: len(drivers)}
	}
	sorted := slices.Clone(drivers)
	slices.SortStableFunc(sorted, func(a, b model.Driver) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	fleet := make([]*DriverState, 0, n)
	for _, d := range sorted[:n] {
		fleet = append(fleet, &DriverState{
			DriverID:       d.ID,
			Name:           d.Name,
			RemainingHours: maxHours,
			Fatigued:       d.Fatigued(),
		})
	}
	return fleet, nil
}
