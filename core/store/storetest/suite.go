// Package storetest holds behaviour tests shared by every store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("drivers", func(t *testing.T) { testDrivers(t, newStore(t)) })
	t.Run("routes", func(t *testing.T) { testRoutes(t, newStore(t)) })
	t.Run("orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("results", func(t *testing.T) { testResults(t, newStore(t)) })
	t.Run("managers", func(t *testing.T) { testManagers(t, newStore(t)) })
	t.Run("snapshot", func(t *testing.T) { testSnapshot(t, newStore(t)) })
}

func intPtr(v int) *int { return &v }

func testDrivers(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	d, err := s.CreateDriver(ctx, model.Driver{Name: "Amit", ShiftHours: 6, PastWeekHours: []string{"8", "9"}, CreatedAt: created})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)

	got, err := s.GetDriver(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amit", got.Name)
	assert.Equal(t, []string{"8", "9"}, got.PastWeekHours)
	assert.True(t, created.Equal(got.CreatedAt))

	got.Name = "Amit K"
	got.CreatedAt = time.Time{}
	updated, err := s.UpdateDriver(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Amit K", updated.Name)
	assert.True(t, created.Equal(updated.CreatedAt))

	_, err = s.CreateDriver(ctx, model.Driver{ID: d.ID, Name: "dup"})
	assert.ErrorIs(t, err, store.ErrConflict)

	second, err := s.CreateDriver(ctx, model.Driver{Name: "Priya"})
	require.NoError(t, err)
	all, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, d.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	require.NoError(t, s.DeleteDriver(ctx, d.ID))
	assert.ErrorIs(t, s.DeleteDriver(ctx, d.ID), store.ErrNotFound)
	_, err = s.GetDriver(ctx, d.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateDriver(ctx, model.Driver{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteAllDrivers(ctx))
	all, err = s.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testRoutes(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateRoute(ctx, model.Route{RouteID: 1, DistanceKM: 10, BaseTimeMin: 30}))
	assert.ErrorIs(t, s.CreateRoute(ctx, model.Route{RouteID: 1}), store.ErrConflict)

	require.NoError(t, s.UpdateRoute(ctx, model.Route{RouteID: 1, DistanceKM: 12, TrafficLevel: model.TrafficHigh, BaseTimeMin: 35}))
	r, err := s.GetRoute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Route{RouteID: 1, DistanceKM: 12, TrafficLevel: model.TrafficHigh, BaseTimeMin: 35}, r)
	assert.ErrorIs(t, s.UpdateRoute(ctx, model.Route{RouteID: 9}), store.ErrNotFound)

	require.NoError(t, s.DeleteRoute(ctx, 1))
	assert.ErrorIs(t, s.DeleteRoute(ctx, 1), store.ErrNotFound)
	_, err = s.GetRoute(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOrders(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := model.Order{OrderID: "O1", ValueRs: 1500, RouteID: intPtr(3), DeliveryTime: model.NewTimeOfDay(9, 30)}
	require.NoError(t, s.CreateOrder(ctx, o))
	assert.ErrorIs(t, s.CreateOrder(ctx, o), store.ErrConflict)
	require.NoError(t, s.CreateOrder(ctx, model.Order{OrderID: "O2", ValueRs: 10, DeliveryTime: model.NewTimeOfDay(8, 0)}))

	got, err := s.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, o, got)

	o.RouteID = nil
	o.ValueRs = 900
	require.NoError(t, s.UpdateOrder(ctx, o))
	got, err = s.GetOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Nil(t, got.RouteID)
	assert.Equal(t, 900.0, got.ValueRs)
	assert.ErrorIs(t, s.UpdateOrder(ctx, model.Order{OrderID: "nope"}), store.ErrNotFound)

	all, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "O1", all[0].OrderID)

	require.NoError(t, s.DeleteOrder(ctx, "O1"))
	assert.ErrorIs(t, s.DeleteOrder(ctx, "O1"), store.ErrNotFound)
	require.NoError(t, s.DeleteAllOrders(ctx))
	all, err = s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testResults(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []model.SimulationResult{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(time.Hour), KPIs: model.KPIs{TotalProfit: 42, OnTime: 1}},
		{ID: "tie", CreatedAt: base.Add(time.Hour)},
	}
	for _, r := range results {
		require.NoError(t, s.SaveResult(ctx, r))
	}
	got, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"tie", "new", "old"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, 42.0, got[1].KPIs.TotalProfit)

	require.NoError(t, s.DeleteAllResults(ctx))
	got, err = s.ListResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testManagers(t *testing.T, s store.Store) {
	ctx := context.Background()
	m, err := s.CreateManager(ctx, model.Manager{Username: "admin", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	_, err = s.CreateManager(ctx, model.Manager{Username: "ADMIN", PasswordHash: "other"})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetManagerByUsername(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.GetManagerByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSnapshot(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.CreateDriver(ctx, model.Driver{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, s.CreateRoute(ctx, model.Route{RouteID: 1, DistanceKM: 5, BaseTimeMin: 20}))
	require.NoError(t, s.CreateOrder(ctx, model.Order{OrderID: "O1", ValueRs: 100, RouteID: intPtr(1)}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Drivers, 1)
	assert.Len(t, snap.Routes, 1)
	assert.Len(t, snap.Orders, 1)

	require.NoError(t, store.ClearOperationalData(ctx, s))
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Drivers)
	assert.Empty(t, snap.Routes)
	assert.Empty(t, snap.Orders)
	require.NoError(t, s.Ping(ctx))
}
