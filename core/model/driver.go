package model

import (
	"strconv"
	"strings"
	"time"
)

// MaxPastWeekEntries bounds the recorded daily hours kept for a driver.
const MaxPastWeekEntries = 7

// FatigueThresholdHours is the most recent daily hours above which a driver is
// considered fatigued.
const FatigueThresholdHours = 8

// Driver represents a member of the delivery fleet.
type Driver struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ShiftHours float64 `json:"shift_hours"` // nominal shift length; not used by the simulation budget
	// PastWeekHours holds up to seven numeric strings, most recent last.
	PastWeekHours []string  `json:"past_week_hours"`
	CreatedAt     time.Time `json:"created_at"`
}

// Fatigued reports whether the most recent past-week entry exceeds the fatigue
// threshold. Entries that do not parse as numbers never count as fatigue.
func (d Driver) Fatigued() bool {
	if len(d.PastWeekHours) == 0 {
		return false
	}
	last := strings.TrimSpace(d.PastWeekHours[len(d.PastWeekHours)-1])
	if last == "" {
		return false
	}
	h, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return false
	}
	return h > FatigueThresholdHours
}
