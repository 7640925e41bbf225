// Package scenarios loads YAML fleet scenarios and checks the simulator
// against their expected KPIs.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetops/core/model"
)

type DriverDef struct {
	Name          string   `yaml:"name"`
	ShiftHours    float64  `yaml:"shift_hours"`
	PastWeekHours []string `yaml:"past_week_hours"`
}

// ToModel builds the driver. Drivers are ordered by their position in the
// scenario, one minute apart.
func (d DriverDef) ToModel(pos int) model.Driver {
	return model.Driver{
		Name:          d.Name,
		ShiftHours:    d.ShiftHours,
		PastWeekHours: d.PastWeekHours,
		CreatedAt:     time.Unix(0, 0).UTC().Add(time.Duration(pos) * time.Minute),
	}
}

type RouteDef struct {
	RouteID      int     `yaml:"route_id"`
	DistanceKM   float64 `yaml:"distance_km"`
	TrafficLevel string  `yaml:"traffic_level"`
	BaseTimeMin  float64 `yaml:"base_time_min"`
}

func (r RouteDef) ToModel() (model.Route, error) {
	lvl := model.TrafficLow
	if r.TrafficLevel != "" {
		var ok bool
		if lvl, ok = model.ParseTrafficLevel(r.TrafficLevel); !ok {
			return model.Route{}, fmt.Errorf("route %d: unknown traffic level %q", r.RouteID, r.TrafficLevel)
		}
	}
	return model.Route{RouteID: r.RouteID, DistanceKM: r.DistanceKM, TrafficLevel: lvl, BaseTimeMin: r.BaseTimeMin}, nil
}

type OrderDef struct {
	OrderID      string  `yaml:"order_id"`
	ValueRs      float64 `yaml:"value_rs"`
	RouteID      *int    `yaml:"route_id"`
	DeliveryTime string  `yaml:"delivery_time"`
}

func (o OrderDef) ToModel() (model.Order, error) {
	t, err := model.ParseTimeOfDay(o.DeliveryTime)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", o.OrderID, err)
	}
	return model.Order{OrderID: o.OrderID, ValueRs: o.ValueRs, RouteID: o.RouteID, DeliveryTime: t}, nil
}

type InputDef struct {
	NumDrivers        int     `yaml:"num_drivers"`
	StartTime         string  `yaml:"start_time"`
	MaxHoursPerDriver float64 `yaml:"max_hours_per_driver"`
}

func (i InputDef) ToModel() model.SimulationInput {
	return model.SimulationInput{NumDrivers: i.NumDrivers, StartTime: i.StartTime, MaxHoursPerDriver: i.MaxHoursPerDriver}
}

// Expected holds the outcome of the run and, for completed runs, its KPIs.
// Assignments maps order IDs to the driver expected to take them.
type Expected struct {
	Outcome       string            `yaml:"outcome"`
	OnTime        int               `yaml:"on_time"`
	Late          int               `yaml:"late"`
	TotalProfit   float64           `yaml:"total_profit"`
	Efficiency    float64           `yaml:"efficiency"`
	FuelCostTotal float64           `yaml:"fuel_cost_total"`
	FuelHigh      float64           `yaml:"fuel_high"`
	FuelNormal    float64           `yaml:"fuel_normal"`
	Allocations   int               `yaml:"allocations"`
	Assignments   map[string]string `yaml:"assignments,omitempty"`
}

type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Drivers     []DriverDef `yaml:"drivers"`
	Routes      []RouteDef  `yaml:"routes"`
	Orders      []OrderDef  `yaml:"orders"`
	Input       InputDef    `yaml:"input"`
	Expected    Expected    `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Expected.Outcome == "" {
		sc.Expected.Outcome = string(model.OutcomeCompleted)
	}
	if !model.RunOutcome(sc.Expected.Outcome).Valid() {
		return nil, fmt.Errorf("scenario %s: unknown outcome %q", sc.Name, sc.Expected.Outcome)
	}
	return &sc, nil
}
