// Package csvimport loads drivers, routes and orders from CSV files,
// replacing whatever the store held before.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// File names read from the import directory.
const (
	DriversFile = "drivers.csv"
	RoutesFile  = "routes.csv"
	OrdersFile  = "orders.csv"
)

// FileReport counts the rows of one file.
type FileReport struct {
	File    string `json:"file"`
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
}

// Report summarises an import.
type Report struct {
	Drivers FileReport `json:"drivers"`
	Routes  FileReport `json:"routes"`
	Orders  FileReport `json:"orders"`
}

// Importer loads CSV data into a store.
type Importer struct {
	store store.Store
	sink  metrics.MetricsSink
	log   logger.Logger
}

// NewImporter creates an importer. A nil sink disables import metrics.
func NewImporter(s store.Store, sink metrics.MetricsSink, log logger.Logger) (*Importer, error) {
	if s == nil {
		return nil, errors.New("csvimport: store is nil")
	}
	if log == nil {
		return nil, errors.New("csvimport: logger is nil")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Importer{store: s, sink: sink, log: log}, nil
}

// Load clears drivers, routes and orders, then loads the three files from dir.
// Rows that fail validation or cannot be stored are skipped and counted. Files
// that cannot be read abort the import.
func (im *Importer) Load(ctx context.Context, dir string) (Report, error) {
	drivers, err := readCSV(filepath.Join(dir, DriversFile))
	if err != nil {
		return Report{}, err
	}
	routes, err := readCSV(filepath.Join(dir, RoutesFile))
	if err != nil {
		return Report{}, err
	}
	orders, err := readCSV(filepath.Join(dir, OrdersFile))
	if err != nil {
		return Report{}, err
	}

	if err := store.ClearOperationalData(ctx, im.store); err != nil {
		return Report{}, fmt.Errorf("clear existing data: %w", err)
	}
	im.log.Infof("cleared existing drivers, routes and orders")

	rep := Report{
		Drivers: FileReport{File: DriversFile},
		Routes:  FileReport{File: RoutesFile},
		Orders:  FileReport{File: OrdersFile},
	}
	for _, row := range drivers {
		im.count(&rep.Drivers, im.loadDriver(ctx, row))
	}
	im.finish(rep.Drivers)
	for _, row := range routes {
		im.count(&rep.Routes, im.loadRoute(ctx, row))
	}
	im.finish(rep.Routes)
	for _, row := range orders {
		im.count(&rep.Orders, im.loadOrder(ctx, row))
	}
	im.finish(rep.Orders)
	return rep, ctx.Err()
}

func (im *Importer) count(fr *FileReport, err error) {
	if err != nil {
		im.log.Warnf("%s: skipping row: %v", fr.File, err)
		fr.Skipped++
		return
	}
	fr.Loaded++
}

func (im *Importer) finish(fr FileReport) {
	im.log.Infof("%s: %d loaded, %d skipped", fr.File, fr.Loaded, fr.Skipped)
	if rec, ok := im.sink.(metrics.ImportRecorder); ok {
		ev := metrics.ImportEvent{File: fr.File, Loaded: fr.Loaded, Skipped: fr.Skipped, Time: time.Now()}
		if err := rec.RecordImport(ev); err != nil {
			im.log.Errorf("import metrics error: %v", err)
		}
	}
}

func (im *Importer) loadDriver(ctx context.Context, row map[string]string) error {
	name := strings.TrimSpace(row["name"])
	if name == "" {
		return errors.New("missing name")
	}
	var hours []string
	if raw := row["past_week_hours"]; raw != "" {
		for _, h := range strings.Split(raw, "|") {
			v, ok := number(h)
			if !ok {
				im.log.Warnf("invalid past_week_hours for driver %s: %q", name, h)
				v = 0
			}
			hours = append(hours, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	if len(hours) > model.MaxPastWeekEntries {
		return fmt.Errorf("driver %s has %d past_week_hours entries, at most %d allowed", name, len(hours), model.MaxPastWeekEntries)
	}
	shift, _ := number(row["shift_hours"])
	_, err := im.store.CreateDriver(ctx, model.Driver{Name: name, ShiftHours: shift, PastWeekHours: hours})
	return err
}

func (im *Importer) loadRoute(ctx context.Context, row map[string]string) error {
	id, ok := integer(row["route_id"])
	if !ok {
		return fmt.Errorf("invalid route_id %q", row["route_id"])
	}
	if strings.TrimSpace(row["distance_km"]) == "" || strings.TrimSpace(row["base_time_min"]) == "" {
		return fmt.Errorf("route %d: distance_km and base_time_min are required", id)
	}
	dist, ok := number(row["distance_km"])
	if !ok {
		return fmt.Errorf("route %d: invalid distance_km %q", id, row["distance_km"])
	}
	base, ok := number(row["base_time_min"])
	if !ok {
		return fmt.Errorf("route %d: invalid base_time_min %q", id, row["base_time_min"])
	}
	// Only exact level names are accepted; anything else is Low.
	traffic := model.TrafficLow
	switch strings.TrimSpace(row["traffic_level"]) {
	case "Medium":
		traffic = model.TrafficMedium
	case "High":
		traffic = model.TrafficHigh
	}
	return im.store.CreateRoute(ctx, model.Route{RouteID: id, DistanceKM: dist, TrafficLevel: traffic, BaseTimeMin: base})
}

func (im *Importer) loadOrder(ctx context.Context, row map[string]string) error {
	orderID := strings.TrimSpace(row["order_id"])
	if orderID == "" {
		return errors.New("missing order_id")
	}
	value, ok := number(row["value_rs"])
	if !ok {
		return fmt.Errorf("order %s: invalid value_rs %q", orderID, row["value_rs"])
	}
	routeID, ok := integer(row["route_id"])
	if !ok {
		return fmt.Errorf("order %s: invalid route_id %q", orderID, row["route_id"])
	}
	if _, err := im.store.GetRoute(ctx, routeID); err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	at, err := parseClock(row["delivery_time"])
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	return im.store.CreateOrder(ctx, model.Order{OrderID: orderID, ValueRs: value, RouteID: &routeID, DeliveryTime: at})
}

// parseClock accepts H:MM or HH:MM with hour 0-23 and minute 0-59.
func parseClock(s string) (model.TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid delivery_time %q", s)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return 0, fmt.Errorf("invalid delivery_time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("delivery_time %q out of range", s)
	}
	return model.NewTimeOfDay(h, m), nil
}

// number parses a decimal; blank input is zero.
func number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// integer parses a required whole number such as "3" or "3.0".
func integer(s string) (int, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	v, ok := number(s)
	if !ok || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// readCSV returns the rows of a headed CSV file keyed by column name.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
