package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/model"
)

// MemoryStore keeps everything in process memory. Records are returned in
// insertion order. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	drivers  []model.Driver
	routes   []model.Route
	orders   []model.Order
	results  []model.SimulationResult
	managers map[string]model.Manager
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{managers: make(map[string]model.Manager), now: time.Now}
}

func (m *MemoryStore) ListDrivers(context.Context) ([]model.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneDrivers(m.drivers), nil
}

func (m *MemoryStore) GetDriver(_ context.Context, id string) (model.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := slices.IndexFunc(m.drivers, func(d model.Driver) bool { return d.ID == id })
	if i < 0 {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	return cloneDriver(m.drivers[i]), nil
}

func (m *MemoryStore) CreateDriver(_ context.Context, d model.Driver) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now().UTC()
	}
	if slices.ContainsFunc(m.drivers, func(x model.Driver) bool { return x.ID == d.ID }) {
		return model.Driver{}, fmt.Errorf("driver %s: %w", d.ID, ErrConflict)
	}
	d = cloneDriver(d)
	m.drivers = append(m.drivers, d)
	return cloneDriver(d), nil
}

func (m *MemoryStore) UpdateDriver(_ context.Context, d model.Driver) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.drivers, func(x model.Driver) bool { return x.ID == d.ID })
	if i < 0 {
		return model.Driver{}, fmt.Errorf("driver %s: %w", d.ID, ErrNotFound)
	}
	d.CreatedAt = m.drivers[i].CreatedAt
	m.drivers[i] = cloneDriver(d)
	return cloneDriver(d), nil
}

func (m *MemoryStore) DeleteDriver(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.drivers, func(d model.Driver) bool { return d.ID == id })
	if i < 0 {
		return fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	m.drivers = slices.Delete(m.drivers, i, i+1)
	return nil
}

func (m *MemoryStore) DeleteAllDrivers(context.Context) error {
	m.mu.Lock()
	m.drivers = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListRoutes(context.Context) ([]model.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.routes), nil
}

func (m *MemoryStore) GetRoute(_ context.Context, routeID int) (model.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.routeIndex(routeID)
	if i < 0 {
		return model.Route{}, fmt.Errorf("route %d: %w", routeID, ErrNotFound)
	}
	return m.routes[i], nil
}

func (m *MemoryStore) CreateRoute(_ context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routeIndex(r.RouteID) >= 0 {
		return fmt.Errorf("route %d: %w", r.RouteID, ErrConflict)
	}
	m.routes = append(m.routes, r)
	return nil
}

func (m *MemoryStore) UpdateRoute(_ context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.routeIndex(r.RouteID)
	if i < 0 {
		return fmt.Errorf("route %d: %w", r.RouteID, ErrNotFound)
	}
	m.routes[i] = r
	return nil
}

func (m *MemoryStore) DeleteRoute(_ context.Context, routeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.routeIndex(routeID)
	if i < 0 {
		return fmt.Errorf("route %d: %w", routeID, ErrNotFound)
	}
	m.routes = slices.Delete(m.routes, i, i+1)
	return nil
}

func (m *MemoryStore) DeleteAllRoutes(context.Context) error {
	m.mu.Lock()
	m.routes = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) routeIndex(routeID int) int {
	return slices.IndexFunc(m.routes, func(r model.Route) bool { return r.RouteID == routeID })
}

func (m *MemoryStore) ListOrders(context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOrders(m.orders), nil
}

func (m *MemoryStore) GetOrder(_ context.Context, orderID string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.orderIndex(orderID)
	if i < 0 {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return cloneOrder(m.orders[i]), nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderIndex(o.OrderID) >= 0 {
		return fmt.Errorf("order %s: %w", o.OrderID, ErrConflict)
	}
	m.orders = append(m.orders, cloneOrder(o))
	return nil
}

func (m *MemoryStore) UpdateOrder(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.orderIndex(o.OrderID)
	if i < 0 {
		return fmt.Errorf("order %s: %w", o.OrderID, ErrNotFound)
	}
	m.orders[i] = cloneOrder(o)
	return nil
}

func (m *MemoryStore) DeleteOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.orderIndex(orderID)
	if i < 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	m.orders = slices.Delete(m.orders, i, i+1)
	return nil
}

func (m *MemoryStore) DeleteAllOrders(context.Context) error {
	m.mu.Lock()
	m.orders = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) orderIndex(orderID string) int {
	return slices.IndexFunc(m.orders, func(o model.Order) bool { return o.OrderID == orderID })
}

func (m *MemoryStore) SaveResult(_ context.Context, r model.SimulationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Allocations = slices.Clone(r.Allocations)
	m.results = append(m.results, r)
	return nil
}

// ListResults returns results newest first; results created at the same
// instant are listed latest-saved first.
func (m *MemoryStore) ListResults(context.Context) ([]model.SimulationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.SimulationResult, 0, len(m.results))
	for i := len(m.results) - 1; i >= 0; i-- {
		r := m.results[i]
		r.Allocations = slices.Clone(r.Allocations)
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b model.SimulationResult) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) DeleteAllResults(context.Context) error {
	m.mu.Lock()
	m.results = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) CreateManager(_ context.Context, mg model.Manager) (model.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(mg.Username)
	if _, ok := m.managers[key]; ok {
		return model.Manager{}, fmt.Errorf("manager %s: %w", mg.Username, ErrConflict)
	}
	if mg.ID == "" {
		mg.ID = uuid.NewString()
	}
	if mg.CreatedAt.IsZero() {
		mg.CreatedAt = m.now().UTC()
	}
	m.managers[key] = mg
	return mg, nil
}

func (m *MemoryStore) GetManagerByUsername(_ context.Context, username string) (model.Manager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mg, ok := m.managers[strings.ToLower(username)]
	if !ok {
		return model.Manager{}, fmt.Errorf("manager %s: %w", username, ErrNotFound)
	}
	return mg, nil
}

// Snapshot copies drivers, routes and orders under one read lock.
func (m *MemoryStore) Snapshot(context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Drivers: cloneDrivers(m.drivers),
		Routes:  slices.Clone(m.routes),
		Orders:  cloneOrders(m.orders),
	}, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func cloneDriver(d model.Driver) model.Driver {
	d.PastWeekHours = slices.Clone(d.PastWeekHours)
	return d
}

func cloneDrivers(ds []model.Driver) []model.Driver {
	out := make([]model.Driver, len(ds))
	for i, d := range ds {
		out[i] = cloneDriver(d)
	}
	return out
}

func cloneOrder(o model.Order) model.Order {
	if o.RouteID != nil {
		id := *o.RouteID
		o.RouteID = &id
	}
	return o
}

func cloneOrders(orders []model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	for i, o := range orders {
		out[i] = cloneOrder(o)
	}
	return out
}
