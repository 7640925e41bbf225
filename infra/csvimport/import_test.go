package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/infra/logger"
)

type importSink struct {
	metrics.NopSink
	mu     sync.Mutex
	events []metrics.ImportEvent
}

func (s *importSink) RecordImport(ev metrics.ImportEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func newImporter(t *testing.T, s store.Store, sink metrics.MetricsSink) *Importer {
	t.Helper()
	im, err := NewImporter(s, sink, logger.NopLogger{})
	require.NoError(t, err)
	return im
}

func TestLoadValidData(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	sink := &importSink{}

	rep, err := newImporter(t, s, sink).Load(ctx, "testdata/valid")
	require.NoError(t, err)
	assert.Equal(t, FileReport{File: DriversFile, Loaded: 3}, rep.Drivers)
	assert.Equal(t, FileReport{File: RoutesFile, Loaded: 3}, rep.Routes)
	assert.Equal(t, FileReport{File: OrdersFile, Loaded: 3}, rep.Orders)

	drivers, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 3)
	assert.Equal(t, "Amit", drivers[0].Name)
	assert.Equal(t, []string{"6", "8", "7", "7", "7", "6", "10"}, drivers[0].PastWeekHours)
	assert.True(t, drivers[0].Fatigued())

	r, err := s.GetRoute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Route{RouteID: 1, DistanceKM: 25, TrafficLevel: model.TrafficHigh, BaseTimeMin: 125}, r)

	o, err := s.GetOrder(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 1835.0, o.ValueRs)
	require.NotNil(t, o.RouteID)
	assert.Equal(t, 2, *o.RouteID)
	assert.Equal(t, "01:19", o.DeliveryTime.String())

	require.Len(t, sink.events, 3)
	assert.Equal(t, RoutesFile, sink.events[1].File)
	assert.Equal(t, 3, sink.events[1].Loaded)
}

func TestLoadSkipsInvalidRows(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	rep, err := newImporter(t, s, nil).Load(ctx, "testdata/messy")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Drivers.Loaded)
	assert.Equal(t, 3, rep.Drivers.Skipped)
	assert.Equal(t, 2, rep.Routes.Loaded)
	assert.Equal(t, 4, rep.Routes.Skipped)
	assert.Equal(t, 2, rep.Orders.Loaded)
	assert.Equal(t, 7, rep.Orders.Skipped)

	drivers, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sana", drivers[0].Name)
	assert.Equal(t, 0.0, drivers[0].ShiftHours)
	assert.Equal(t, []string{"8", "0", "9"}, drivers[0].PastWeekHours)
	assert.Empty(t, drivers[1].PastWeekHours)

	r, err := s.GetRoute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TrafficHigh, r.TrafficLevel)
	assert.Equal(t, 10.0, r.DistanceKM, "duplicate route rows must not overwrite")
	r, err = s.GetRoute(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, model.TrafficLow, r.TrafficLevel)

	o, err := s.GetOrder(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "09:05", o.DeliveryTime.String())
	o, err = s.GetOrder(ctx, "A6")
	require.NoError(t, err)
	assert.Equal(t, 700.0, o.ValueRs)
}

func TestLoadReplacesExistingData(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	_, err := s.CreateDriver(ctx, model.Driver{Name: "Old"})
	require.NoError(t, err)
	require.NoError(t, s.CreateRoute(ctx, model.Route{RouteID: 42}))
	require.NoError(t, s.SaveResult(ctx, model.SimulationResult{ID: "keep"}))

	_, err = newImporter(t, s, nil).Load(ctx, "testdata/valid")
	require.NoError(t, err)

	drivers, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Len(t, drivers, 3)
	_, err = s.GetRoute(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1, "history survives an import")
}

func TestLoadMissingFileKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DriversFile), []byte("name\nA\n"), 0o644))

	s := store.NewMemoryStore()
	require.NoError(t, s.CreateRoute(ctx, model.Route{RouteID: 1}))
	_, err := newImporter(t, s, nil).Load(ctx, dir)
	require.Error(t, err)

	_, err = s.GetRoute(ctx, 1)
	assert.NoError(t, err, "nothing is cleared when a file is unreadable")
}

func TestEmptyFilesLoadNothing(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{DriversFile, RoutesFile, OrdersFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	rep, err := newImporter(t, store.NewMemoryStore(), nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, rep.Drivers.Loaded+rep.Routes.Loaded+rep.Orders.Loaded)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"09:30", "09:30", true},
		{" 7:05 ", "07:05", true},
		{"23:59", "23:59", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"12", "", false},
		{"ab:cd", "", false},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String())
	}
}

func TestNewImporterRequiresStoreAndLogger(t *testing.T) {
	_, err := NewImporter(nil, nil, logger.NopLogger{})
	assert.Error(t, err)
	_, err = NewImporter(store.NewMemoryStore(), nil, nil)
	assert.Error(t, err)
}
