// Package store defines the persistence ports used by the simulation runner
// and the HTTP API, plus an in-process implementation.
package store

import (
	"context"
	"errors"

	"github.com/kilianp07/fleetops/core/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
)

// DriverRepository manages drivers. Create assigns an ID and creation time
// when they are missing.
type DriverRepository interface {
	ListDrivers(ctx context.Context) ([]model.Driver, error)
	GetDriver(ctx context.Context, id string) (model.Driver, error)
	CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	DeleteDriver(ctx context.Context, id string) error
	DeleteAllDrivers(ctx context.Context) error
}

// RouteRepository manages routes keyed by their business RouteID.
type RouteRepository interface {
	ListRoutes(ctx context.Context) ([]model.Route, error)
	GetRoute(ctx context.Context, routeID int) (model.Route, error)
	CreateRoute(ctx context.Context, r model.Route) error
	UpdateRoute(ctx context.Context, r model.Route) error
	DeleteRoute(ctx context.Context, routeID int) error
	DeleteAllRoutes(ctx context.Context) error
}

// OrderRepository manages orders keyed by OrderID. Orders may reference
// routes that do not exist.
type OrderRepository interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	CreateOrder(ctx context.Context, o model.Order) error
	UpdateOrder(ctx context.Context, o model.Order) error
	DeleteOrder(ctx context.Context, orderID string) error
	DeleteAllOrders(ctx context.Context) error
}

// ResultRepository persists simulation results. ListResults returns the
// newest result first.
type ResultRepository interface {
	SaveResult(ctx context.Context, r model.SimulationResult) error
	ListResults(ctx context.Context) ([]model.SimulationResult, error)
	DeleteAllResults(ctx context.Context) error
}

// ManagerRepository stores dashboard accounts. Usernames are unique.
type ManagerRepository interface {
	CreateManager(ctx context.Context, m model.Manager) (model.Manager, error)
	GetManagerByUsername(ctx context.Context, username string) (model.Manager, error)
}

// Snapshot is a consistent read of everything a simulation needs.
type Snapshot struct {
	Drivers []model.Driver
	Routes  []model.Route
	Orders  []model.Order
}

// Snapshotter reads a Snapshot in one step.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Store is the full persistence backend.
type Store interface {
	DriverRepository
	RouteRepository
	OrderRepository
	ResultRepository
	ManagerRepository
	Snapshotter
	Ping(ctx context.Context) error
	Close() error
}

// ClearOperationalData removes drivers, routes and orders. Results and
// managers are kept.
func ClearOperationalData(ctx context.Context, s Store) error {
	if err := s.DeleteAllOrders(ctx); err != nil {
		return err
	}
	if err := s.DeleteAllRoutes(ctx); err != nil {
		return err
	}
	return s.DeleteAllDrivers(ctx)
}

// ClearAll removes operational data and the simulation history.
func ClearAll(ctx context.Context, s Store) error {
	if err := ClearOperationalData(ctx, s); err != nil {
		return err
	}
	return s.DeleteAllResults(ctx)
}

// PopulateRoutes resolves the route of each order. Missing references leave
// Route nil.
func PopulateRoutes(orders []model.Order, routes []model.Route) []model.OrderWithRoute {
	byID := make(map[int]model.Route, len(routes))
	for _, r := range routes {
		byID[r.RouteID] = r
	}
	out := make([]model.OrderWithRoute, 0, len(orders))
	for _, o := range orders {
		ow := model.OrderWithRoute{Order: o}
		if o.RouteID != nil {
			if r, ok := byID[*o.RouteID]; ok {
				ow.Route = &r
			}
		}
		out = append(out, ow)
	}
	return out
}
