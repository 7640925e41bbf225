// Package sqlstore implements the persistence ports on top of database/sql
// for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Store persists drivers, routes, orders, results and managers in SQL tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an open database and ensures the schema exists.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d, now: time.Now}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s schema: %w", d.Name, err)
		}
	}
	return s, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(q), args...)
}

func (s *Store) mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	if s.dialect.isUnique(err) {
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

const driverCols = `id, name, shift_hours, past_week_hours, created_at`

func (s *Store) listDrivers(ctx context.Context, q querier) ([]model.Driver, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+driverCols+` FROM drivers ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []model.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDriver(sc scanner) (model.Driver, error) {
	var d model.Driver
	var hours string
	var created int64
	if err := sc.Scan(&d.ID, &d.Name, &d.ShiftHours, &hours, &created); err != nil {
		return model.Driver{}, err
	}
	if err := json.Unmarshal([]byte(hours), &d.PastWeekHours); err != nil {
		return model.Driver{}, fmt.Errorf("driver %s past_week_hours: %w", d.ID, err)
	}
	d.CreatedAt = time.Unix(0, created).UTC()
	return d, nil
}

func encodeHours(h []string) (string, error) {
	if h == nil {
		h = []string{}
	}
	b, err := json.Marshal(h)
	return string(b), err
}

func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	return s.listDrivers(ctx, s.db)
}

func (s *Store) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+driverCols+` FROM drivers WHERE id = ?`), id)
	d, err := scanDriver(row)
	if err != nil {
		return model.Driver{}, s.mapErr(err, "driver "+id)
	}
	return d, nil
}

func (s *Store) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	hours, err := encodeHours(d.PastWeekHours)
	if err != nil {
		return model.Driver{}, err
	}
	_, err = s.exec(ctx, `INSERT INTO drivers (id, name, shift_hours, past_week_hours, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.ShiftHours, hours, d.CreatedAt.UnixNano())
	if err != nil {
		return model.Driver{}, s.mapErr(err, "driver "+d.ID)
	}
	return d, nil
}

// UpdateDriver replaces the mutable fields; CreatedAt is kept.
func (s *Store) UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	hours, err := encodeHours(d.PastWeekHours)
	if err != nil {
		return model.Driver{}, err
	}
	res, err := s.exec(ctx, `UPDATE drivers SET name = ?, shift_hours = ?, past_week_hours = ? WHERE id = ?`,
		d.Name, d.ShiftHours, hours, d.ID)
	if err != nil {
		return model.Driver{}, s.mapErr(err, "driver "+d.ID)
	}
	if err := affected(res, "driver "+d.ID); err != nil {
		return model.Driver{}, err
	}
	return s.GetDriver(ctx, d.ID)
}

func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM drivers WHERE id = ?`, id)
	if err != nil {
		return s.mapErr(err, "driver "+id)
	}
	return affected(res, "driver "+id)
}

func (s *Store) DeleteAllDrivers(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM drivers`)
	return err
}

const routeCols = `route_id, distance_km, traffic_level, base_time_min`

func scanRoute(sc scanner) (model.Route, error) {
	var r model.Route
	var traffic string
	if err := sc.Scan(&r.RouteID, &r.DistanceKM, &traffic, &r.BaseTimeMin); err != nil {
		return model.Route{}, err
	}
	r.TrafficLevel, _ = model.ParseTrafficLevel(traffic)
	return r, nil
}

func (s *Store) listRoutes(ctx context.Context, q querier) ([]model.Route, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+routeCols+` FROM routes ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListRoutes(ctx context.Context) ([]model.Route, error) {
	return s.listRoutes(ctx, s.db)
}

func (s *Store) GetRoute(ctx context.Context, routeID int) (model.Route, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+routeCols+` FROM routes WHERE route_id = ?`), routeID)
	r, err := scanRoute(row)
	if err != nil {
		return model.Route{}, s.mapErr(err, fmt.Sprintf("route %d", routeID))
	}
	return r, nil
}

func (s *Store) CreateRoute(ctx context.Context, r model.Route) error {
	_, err := s.exec(ctx, `INSERT INTO routes (route_id, distance_km, traffic_level, base_time_min) VALUES (?, ?, ?, ?)`,
		r.RouteID, r.DistanceKM, r.TrafficLevel.String(), r.BaseTimeMin)
	return s.mapErr(err, fmt.Sprintf("route %d", r.RouteID))
}

func (s *Store) UpdateRoute(ctx context.Context, r model.Route) error {
	what := fmt.Sprintf("route %d", r.RouteID)
	res, err := s.exec(ctx, `UPDATE routes SET distance_km = ?, traffic_level = ?, base_time_min = ? WHERE route_id = ?`,
		r.DistanceKM, r.TrafficLevel.String(), r.BaseTimeMin, r.RouteID)
	if err != nil {
		return s.mapErr(err, what)
	}
	return affected(res, what)
}

func (s *Store) DeleteRoute(ctx context.Context, routeID int) error {
	what := fmt.Sprintf("route %d", routeID)
	res, err := s.exec(ctx, `DELETE FROM routes WHERE route_id = ?`, routeID)
	if err != nil {
		return s.mapErr(err, what)
	}
	return affected(res, what)
}

func (s *Store) DeleteAllRoutes(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM routes`)
	return err
}

const orderCols = `order_id, value_rs, route_id, delivery_time`

func scanOrder(sc scanner) (model.Order, error) {
	var o model.Order
	var routeID sql.NullInt64
	var minutes int64
	if err := sc.Scan(&o.OrderID, &o.ValueRs, &routeID, &minutes); err != nil {
		return model.Order{}, err
	}
	if routeID.Valid {
		id := int(routeID.Int64)
		o.RouteID = &id
	}
	o.DeliveryTime = model.TimeOfDay(minutes)
	return o, nil
}

func routeArg(id *int) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func (s *Store) listOrders(ctx context.Context, q querier) ([]model.Order, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+orderCols+` FROM orders ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.listOrders(ctx, s.db)
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+orderCols+` FROM orders WHERE order_id = ?`), orderID)
	o, err := scanOrder(row)
	if err != nil {
		return model.Order{}, s.mapErr(err, "order "+orderID)
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order) error {
	_, err := s.exec(ctx, `INSERT INTO orders (order_id, value_rs, route_id, delivery_time) VALUES (?, ?, ?, ?)`,
		o.OrderID, o.ValueRs, routeArg(o.RouteID), int64(o.DeliveryTime))
	return s.mapErr(err, "order "+o.OrderID)
}

func (s *Store) UpdateOrder(ctx context.Context, o model.Order) error {
	res, err := s.exec(ctx, `UPDATE orders SET value_rs = ?, route_id = ?, delivery_time = ? WHERE order_id = ?`,
		o.ValueRs, routeArg(o.RouteID), int64(o.DeliveryTime), o.OrderID)
	if err != nil {
		return s.mapErr(err, "order "+o.OrderID)
	}
	return affected(res, "order "+o.OrderID)
}

func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	res, err := s.exec(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
	if err != nil {
		return s.mapErr(err, "order "+orderID)
	}
	return affected(res, "order "+orderID)
}

func (s *Store) DeleteAllOrders(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM orders`)
	return err
}

func (s *Store) SaveResult(ctx context.Context, r model.SimulationResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.exec(ctx, `INSERT INTO simulation_results (id, created_at, payload) VALUES (?, ?, ?)`,
		r.ID, r.CreatedAt.UnixNano(), string(payload))
	return s.mapErr(err, "result "+r.ID)
}

// ListResults returns results newest first, latest saved first on ties.
func (s *Store) ListResults(ctx context.Context) ([]model.SimulationResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM simulation_results ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []model.SimulationResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.SimulationResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAllResults(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM simulation_results`)
	return err
}

// CreateManager stores a manager; usernames are stored lower-cased.
func (s *Store) CreateManager(ctx context.Context, m model.Manager) (model.Manager, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	_, err := s.exec(ctx, `INSERT INTO managers (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, strings.ToLower(m.Username), m.PasswordHash, m.CreatedAt.UnixNano())
	if err != nil {
		return model.Manager{}, s.mapErr(err, "manager "+m.Username)
	}
	return m, nil
}

func (s *Store) GetManagerByUsername(ctx context.Context, username string) (model.Manager, error) {
	var m model.Manager
	var created int64
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT id, username, password_hash, created_at FROM managers WHERE username = ?`),
		strings.ToLower(username))
	if err := row.Scan(&m.ID, &m.Username, &m.PasswordHash, &created); err != nil {
		return model.Manager{}, s.mapErr(err, "manager "+username)
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	return m, nil
}

// Snapshot reads drivers, routes and orders inside one transaction.
func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, s.dialect.txOpts)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()
	var snap store.Snapshot
	if snap.Drivers, err = s.listDrivers(ctx, tx); err != nil {
		return store.Snapshot{}, fmt.Errorf("drivers: %w", err)
	}
	if snap.Routes, err = s.listRoutes(ctx, tx); err != nil {
		return store.Snapshot{}, fmt.Errorf("routes: %w", err)
	}
	if snap.Orders, err = s.listOrders(ctx, tx); err != nil {
		return store.Snapshot{}, fmt.Errorf("orders: %w", err)
	}
	return snap, tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
