package scenarios

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/simulation"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/infra/logger"
)

const tolerance = 1e-9

// Seed writes the scenario data into a fresh memory store.
func Seed(t *testing.T, sc *Scenario) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	for i, d := range sc.Drivers {
		_, err := st.CreateDriver(ctx, d.ToModel(i))
		require.NoError(t, err)
	}
	for _, r := range sc.Routes {
		route, err := r.ToModel()
		require.NoError(t, err)
		require.NoError(t, st.CreateRoute(ctx, route))
	}
	for _, o := range sc.Orders {
		order, err := o.ToModel()
		require.NoError(t, err)
		require.NoError(t, st.CreateOrder(ctx, order))
	}
	return st
}

// RunScenario simulates sc and checks the expected outcome. Rejected runs
// must leave no stored result.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	st := Seed(t, sc)
	runner, err := simulation.NewRunner(st, st, nil, nil, logger.NopLogger{})
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), sc.Input.ToModel())
	require.Equal(t, sc.Expected.Outcome, string(simulation.OutcomeOf(err)), "run error: %v", err)

	history, herr := runner.History(context.Background())
	require.NoError(t, herr)
	if err != nil {
		assert.Empty(t, history)
		return
	}
	require.Len(t, history, 1)

	exp := sc.Expected
	k := res.KPIs
	assert.Equal(t, exp.OnTime, k.OnTime, "on time")
	assert.Equal(t, exp.Late, k.Late, "late")
	assert.InDelta(t, exp.TotalProfit, k.TotalProfit, tolerance, "total profit")
	assert.InDelta(t, exp.Efficiency, k.Efficiency, tolerance, "efficiency")
	assert.InDelta(t, exp.FuelCostTotal, k.FuelCostTotal, tolerance, "fuel total")
	assert.InDelta(t, exp.FuelHigh, k.FuelBreakdown.High, tolerance, "fuel high")
	assert.InDelta(t, exp.FuelNormal, k.FuelBreakdown.Normal, tolerance, "fuel normal")
	assert.Len(t, res.Allocations, exp.Allocations)
	assert.Equal(t, len(sc.Orders), k.Processed())

	byOrder := make(map[string]model.Allocation, len(res.Allocations))
	for _, a := range res.Allocations {
		assert.False(t, a.Unassigned(), "allocation %s carries the sentinel driver", a.OrderID)
		byOrder[a.OrderID] = a
	}
	for orderID, driver := range exp.Assignments {
		a, ok := byOrder[orderID]
		if assert.True(t, ok, "order %s not allocated", orderID) {
			assert.Equal(t, driver, a.DriverName, "driver of order %s", orderID)
		}
	}
}
