package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/infra/logger"
)

// InfluxSink writes simulation runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSimulation writes one "simulation_run" point per attempt.
func (s *InfluxSink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, simulationPoint(rec))
}

func simulationPoint(rec coremetrics.SimulationRecord) *write.Point {
	p := write.NewPointWithMeasurement("simulation_run").
		AddTag("outcome", string(rec.Outcome)).
		AddTag("num_drivers", strconv.Itoa(rec.Inputs.NumDrivers)).
		AddTag("component", "simulation_runner")
	if rec.ResultID != "" {
		p = p.AddTag("result_id", rec.ResultID)
	}
	return p.AddField("max_hours", round3(rec.Inputs.MaxHoursPerDriver)).
		AddField("total_profit", round3(rec.KPIs.TotalProfit)).
		AddField("efficiency", round3(rec.KPIs.Efficiency)).
		AddField("on_time", rec.KPIs.OnTime).
		AddField("late", rec.KPIs.Late).
		AddField("fuel_high", round3(rec.KPIs.FuelBreakdown.High)).
		AddField("fuel_normal", round3(rec.KPIs.FuelBreakdown.Normal)).
		AddField("allocated", rec.Allocated).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
}

// RecordImport writes a "data_import" point.
func (s *InfluxSink) RecordImport(ev coremetrics.ImportEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("data_import").
		AddTag("file", ev.File).
		AddField("loaded", ev.Loaded).
		AddField("skipped", ev.Skipped).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordNotification writes a "result_notification" point.
func (s *InfluxSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("result_notification").
		AddTag("sink", ev.Sink).
		AddTag("result_id", ev.ResultID).
		AddTag("success", strconv.FormatBool(ev.Err == "")).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Err).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
