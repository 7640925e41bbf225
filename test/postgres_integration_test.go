//go:build integration

package test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/api"
	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/store/storetest"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/infra/storage/sqlstore"
	"github.com/kilianp07/fleetops/test/util"
)

// freshDatabase creates an empty database on the server behind dsn and
// returns its DSN.
func freshDatabase(t *testing.T, dsn, name string) string {
	t.Helper()
	admin, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer admin.Close()
	_, err = admin.Exec("CREATE DATABASE " + name)
	require.NoError(t, err)
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	u.Path = "/" + name
	return u.String()
}

func TestPostgresConformance(t *testing.T) {
	ctx := context.Background()
	dsn, cleanup, err := util.StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		s, err := sqlstore.Open(ctx, sqlstore.Postgres, sqlstore.Config{DSN: freshDatabase(t, dsn, fmt.Sprintf("conformance_%d", n))})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func postJSON(t *testing.T, client *http.Client, target, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPostgresEndToEnd(t *testing.T) {
	ctx := context.Background()
	dsn, cleanup, err := util.StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	cfg := &config.Config{
		Storage: factory.ModuleConfig{Type: "postgres", Conf: map[string]any{"dsn": dsn}},
		Auth:    config.AuthConfig{JWTSecret: "integration-secret", BcryptCost: 4},
		Import:  config.ImportConfig{Dir: filepath.Join("..", "infra", "csvimport", "testdata", "valid")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv, err := api.NewServer(api.Options{
		HTTP:        cfg.HTTP,
		Auth:        cfg.Auth,
		ImportDir:   cfg.Import.Dir,
		MetricsPath: cfg.Metrics.Path,
	}, svc.Store, svc.Runner, svc.Importer, logger.NopLogger{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/auth/register", "", map[string]string{"username": "Ops", "password": "secret1"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, ts.URL+"/api/auth/login", "", map[string]string{"username": "ops", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/load-data", login.Token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, client, ts.URL+"/api/simulate", login.Token, model.SimulationInput{NumDrivers: 3, StartTime: "08:00", MaxHoursPerDriver: 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res model.SimulationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, 3, res.KPIs.Processed())
	assert.InDelta(t, res.KPIs.FuelBreakdown.High+res.KPIs.FuelBreakdown.Normal, res.KPIs.FuelCostTotal, 1e-9)

	resp = postJSON(t, client, ts.URL+"/api/simulate", login.Token, model.SimulationInput{NumDrivers: 4, StartTime: "08:00", MaxHoursPerDriver: 8})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	history, err := svc.Runner.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.ID, history[0].ID)
	assert.Equal(t, res.KPIs, history[0].KPIs)

	waitCtx, cancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer cancel()
	require.NoError(t, util.WaitForMetric(waitCtx, ts.URL+cfg.Metrics.Path, `simulation_runs_total{outcome="insufficient_drivers"}`))

	start := time.Now()
	again, err := svc.Simulate(ctx, model.SimulationInput{NumDrivers: 3, StartTime: "08:00", MaxHoursPerDriver: 8})
	require.NoError(t, err)
	assert.Equal(t, res.KPIs, again.KPIs, "same data and inputs give the same KPIs")
	assert.False(t, again.CreatedAt.Before(start.Add(-time.Second)))
}
