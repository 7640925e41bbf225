package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:runlog_test.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	kpis := model.KPIs{TotalProfit: 450, Efficiency: 100, OnTime: 1}
	require.NoError(t, store.Append(context.Background(), Record{
		Timestamp: now,
		Inputs:    model.SimulationInput{NumDrivers: 1, StartTime: "09:00", MaxHoursPerDriver: 8},
		Outcome:   model.OutcomeCompleted,
		ResultID:  "r1",
		KPIs:      &kpis,
	}))
	require.NoError(t, store.Append(context.Background(), Record{
		Timestamp: now.Add(time.Second),
		Outcome:   model.OutcomeInsufficientDrivers,
		Error:     "only 2 drivers available, 3 requested",
	}))

	out, err := store.Query(context.Background(), Query{Outcome: model.OutcomeCompleted})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].ResultID)
	require.NotNil(t, out[0].KPIs)
	assert.Equal(t, 450.0, out[0].KPIs.TotalProfit)

	all, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.OutcomeInsufficientDrivers, all[1].Outcome)
}

func TestOpen(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	s, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	bad := Config{Backend: "kafka"}
	assert.Error(t, bad.Validate())
	_, err = Open(bad)
	assert.Error(t, err)

	j := Config{Backend: "jsonl", Path: t.TempDir() + "/runs.jsonl"}
	j.SetDefaults()
	s, err = Open(j)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.IsType(t, &RotatingJSONLStore{}, s)
}
