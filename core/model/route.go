package model

import (
	"fmt"
	"strings"
)

// TrafficLevel classifies the congestion expected on a route.
type TrafficLevel int

const (
	TrafficLow TrafficLevel = iota
	TrafficMedium
	TrafficHigh
)

// String returns the canonical name of the traffic level.
func (t TrafficLevel) String() string {
	switch t {
	case TrafficLow:
		return "Low"
	case TrafficMedium:
		return "Medium"
	case TrafficHigh:
		return "High"
	default:
		return "unknown"
	}
}

// ParseTrafficLevel converts a name to a TrafficLevel. Matching ignores case and
// surrounding spaces. Unknown names default to TrafficLow with ok set to false.
func ParseTrafficLevel(s string) (TrafficLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TrafficLow, true
	case "medium":
		return TrafficMedium, true
	case "high":
		return TrafficHigh, true
	default:
		return TrafficLow, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t TrafficLevel) MarshalText() ([]byte, error) {
	if t < TrafficLow || t > TrafficHigh {
		return nil, fmt.Errorf("invalid traffic level %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes to
// TrafficLow; any other unknown value is rejected.
func (t *TrafficLevel) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*t = TrafficLow
		return nil
	}
	lvl, ok := ParseTrafficLevel(string(b))
	if !ok {
		return fmt.Errorf("invalid traffic level %q", string(b))
	}
	*t = lvl
	return nil
}

// Route describes a delivery route between the hub and a destination.
type Route struct {
	RouteID      int          `json:"route_id"`
	DistanceKM   float64      `json:"distance_km"`
	TrafficLevel TrafficLevel `json:"traffic_level"`
	BaseTimeMin  float64      `json:"base_time_min"` // nominal transit time in minutes
}
