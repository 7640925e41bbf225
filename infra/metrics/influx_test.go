package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

func TestInfluxSink_RecordSimulation(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	rec := coremetrics.SimulationRecord{
		ResultID: "r1",
		Outcome:  model.OutcomeCompleted,
		Inputs:   model.SimulationInput{NumDrivers: 2, StartTime: "09:00", MaxHoursPerDriver: 8},
		KPIs: model.KPIs{
			TotalProfit:   450,
			Efficiency:    100,
			OnTime:        1,
			FuelCostTotal: 50,
			FuelBreakdown: model.FuelBreakdown{Normal: 50},
		},
		Allocated: 1,
		Duration:  3 * time.Millisecond,
		Time:      now,
	}

	if err := sink.RecordSimulation(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	expected := strings.TrimSpace(write.PointToLineProtocol(simulationPoint(rec), time.Nanosecond))
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
	if !strings.Contains(body, "outcome=completed") || !strings.Contains(body, "result_id=r1") {
		t.Errorf("missing tags in %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
