// Package mongostore implements the persistence ports on MongoDB.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Config holds the connection settings.
type Config struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MaxPoolSize    uint64        `json:"max_pool_size"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "fleetops"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 20
	}
}

const (
	colDrivers  = "drivers"
	colRoutes   = "routes"
	colOrders   = "orders"
	colResults  = "simulation_results"
	colManagers = "managers"
	colCounters = "counters"
)

// Store keeps each entity in its own collection. Insertion order is tracked
// with a per-collection sequence.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects, verifies the connection and ensures indexes.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.SetDefaults()
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	s := &Store{client: client, db: client.Database(cfg.Database), now: time.Now}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	seq := mongo.IndexModel{Keys: bson.D{{Key: "seq", Value: 1}}}
	for _, name := range []string{colDrivers, colRoutes, colOrders} {
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, seq); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	if _, err := s.db.Collection(colResults).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}},
	}); err != nil {
		return fmt.Errorf("index %s: %w", colResults, err)
	}
	if _, err := s.db.Collection(colManagers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index %s: %w", colManagers, err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func matched(res *mongo.UpdateResult, what string) error {
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

func deleted(res *mongo.DeleteResult, what string) error {
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, sort bson.D) ([]T, error) {
	cur, err := c.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type driverDoc struct {
	ID            string   `bson:"_id"`
	Seq           int64    `bson:"seq"`
	Name          string   `bson:"name"`
	ShiftHours    float64  `bson:"shift_hours"`
	PastWeekHours []string `bson:"past_week_hours"`
	CreatedAt     int64    `bson:"created_at"`
}

func (d driverDoc) model() model.Driver {
	return model.Driver{
		ID:            d.ID,
		Name:          d.Name,
		ShiftHours:    d.ShiftHours,
		PastWeekHours: d.PastWeekHours,
		CreatedAt:     time.Unix(0, d.CreatedAt).UTC(),
	}
}

func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	docs, err := findAll[driverDoc](ctx, s.db.Collection(colDrivers), bson.D{{Key: "seq", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]model.Driver, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	var doc driverDoc
	if err := s.db.Collection(colDrivers).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return model.Driver{}, mapErr(err, "driver "+id)
	}
	return doc.model(), nil
}

func (s *Store) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	seq, err := s.nextSeq(ctx, colDrivers)
	if err != nil {
		return model.Driver{}, err
	}
	_, err = s.db.Collection(colDrivers).InsertOne(ctx, driverDoc{
		ID: d.ID, Seq: seq, Name: d.Name, ShiftHours: d.ShiftHours,
		PastWeekHours: d.PastWeekHours, CreatedAt: d.CreatedAt.UnixNano(),
	})
	if err != nil {
		return model.Driver{}, mapErr(err, "driver "+d.ID)
	}
	return d, nil
}

// UpdateDriver replaces the mutable fields; CreatedAt is kept.
func (s *Store) UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	res, err := s.db.Collection(colDrivers).UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
		"name":            d.Name,
		"shift_hours":     d.ShiftHours,
		"past_week_hours": d.PastWeekHours,
	}})
	if err != nil {
		return model.Driver{}, mapErr(err, "driver "+d.ID)
	}
	if err := matched(res, "driver "+d.ID); err != nil {
		return model.Driver{}, err
	}
	return s.GetDriver(ctx, d.ID)
}

func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	res, err := s.db.Collection(colDrivers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "driver "+id)
	}
	return deleted(res, "driver "+id)
}

func (s *Store) DeleteAllDrivers(ctx context.Context) error {
	_, err := s.db.Collection(colDrivers).DeleteMany(ctx, bson.M{})
	return err
}

type routeDoc struct {
	RouteID      int     `bson:"_id"`
	Seq          int64   `bson:"seq"`
	DistanceKM   float64 `bson:"distance_km"`
	TrafficLevel string  `bson:"traffic_level"`
	BaseTimeMin  float64 `bson:"base_time_min"`
}

func (r routeDoc) model() model.Route {
	lvl, _ := model.ParseTrafficLevel(r.TrafficLevel)
	return model.Route{RouteID: r.RouteID, DistanceKM: r.DistanceKM, TrafficLevel: lvl, BaseTimeMin: r.BaseTimeMin}
}

func (s *Store) ListRoutes(ctx context.Context) ([]model.Route, error) {
	docs, err := findAll[routeDoc](ctx, s.db.Collection(colRoutes), bson.D{{Key: "seq", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]model.Route, len(docs))
	for i, r := range docs {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) GetRoute(ctx context.Context, routeID int) (model.Route, error) {
	var doc routeDoc
	if err := s.db.Collection(colRoutes).FindOne(ctx, bson.M{"_id": routeID}).Decode(&doc); err != nil {
		return model.Route{}, mapErr(err, fmt.Sprintf("route %d", routeID))
	}
	return doc.model(), nil
}

func (s *Store) CreateRoute(ctx context.Context, r model.Route) error {
	seq, err := s.nextSeq(ctx, colRoutes)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(colRoutes).InsertOne(ctx, routeDoc{
		RouteID: r.RouteID, Seq: seq, DistanceKM: r.DistanceKM,
		TrafficLevel: r.TrafficLevel.String(), BaseTimeMin: r.BaseTimeMin,
	})
	return mapErr(err, fmt.Sprintf("route %d", r.RouteID))
}

func (s *Store) UpdateRoute(ctx context.Context, r model.Route) error {
	what := fmt.Sprintf("route %d", r.RouteID)
	res, err := s.db.Collection(colRoutes).UpdateOne(ctx, bson.M{"_id": r.RouteID}, bson.M{"$set": bson.M{
		"distance_km":   r.DistanceKM,
		"traffic_level": r.TrafficLevel.String(),
		"base_time_min": r.BaseTimeMin,
	}})
	if err != nil {
		return mapErr(err, what)
	}
	return matched(res, what)
}

func (s *Store) DeleteRoute(ctx context.Context, routeID int) error {
	what := fmt.Sprintf("route %d", routeID)
	res, err := s.db.Collection(colRoutes).DeleteOne(ctx, bson.M{"_id": routeID})
	if err != nil {
		return mapErr(err, what)
	}
	return deleted(res, what)
}

func (s *Store) DeleteAllRoutes(ctx context.Context) error {
	_, err := s.db.Collection(colRoutes).DeleteMany(ctx, bson.M{})
	return err
}

type orderDoc struct {
	OrderID      string  `bson:"_id"`
	Seq          int64   `bson:"seq"`
	ValueRs      float64 `bson:"value_rs"`
	RouteID      *int    `bson:"route_id"`
	DeliveryTime int     `bson:"delivery_time"`
}

func (o orderDoc) model() model.Order {
	return model.Order{OrderID: o.OrderID, ValueRs: o.ValueRs, RouteID: o.RouteID, DeliveryTime: model.TimeOfDay(o.DeliveryTime)}
}

func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	docs, err := findAll[orderDoc](ctx, s.db.Collection(colOrders), bson.D{{Key: "seq", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, len(docs))
	for i, o := range docs {
		out[i] = o.model()
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	var doc orderDoc
	if err := s.db.Collection(colOrders).FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc); err != nil {
		return model.Order{}, mapErr(err, "order "+orderID)
	}
	return doc.model(), nil
}

func (s *Store) CreateOrder(ctx context.Context, o model.Order) error {
	seq, err := s.nextSeq(ctx, colOrders)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(colOrders).InsertOne(ctx, orderDoc{
		OrderID: o.OrderID, Seq: seq, ValueRs: o.ValueRs, RouteID: o.RouteID, DeliveryTime: int(o.DeliveryTime),
	})
	return mapErr(err, "order "+o.OrderID)
}

func (s *Store) UpdateOrder(ctx context.Context, o model.Order) error {
	res, err := s.db.Collection(colOrders).UpdateOne(ctx, bson.M{"_id": o.OrderID}, bson.M{"$set": bson.M{
		"value_rs":      o.ValueRs,
		"route_id":      o.RouteID,
		"delivery_time": int(o.DeliveryTime),
	}})
	if err != nil {
		return mapErr(err, "order "+o.OrderID)
	}
	return matched(res, "order "+o.OrderID)
}

func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	res, err := s.db.Collection(colOrders).DeleteOne(ctx, bson.M{"_id": orderID})
	if err != nil {
		return mapErr(err, "order "+orderID)
	}
	return deleted(res, "order "+orderID)
}

func (s *Store) DeleteAllOrders(ctx context.Context) error {
	_, err := s.db.Collection(colOrders).DeleteMany(ctx, bson.M{})
	return err
}

type resultDoc struct {
	ID        string `bson:"_id"`
	Seq       int64  `bson:"seq"`
	CreatedAt int64  `bson:"created_at"`
	Payload   string `bson:"payload"`
}

func (s *Store) SaveResult(ctx context.Context, r model.SimulationResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	seq, err := s.nextSeq(ctx, colResults)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(colResults).InsertOne(ctx, resultDoc{
		ID: r.ID, Seq: seq, CreatedAt: r.CreatedAt.UnixNano(), Payload: string(payload),
	})
	return mapErr(err, "result "+r.ID)
}

// ListResults returns results newest first, latest saved first on ties.
func (s *Store) ListResults(ctx context.Context) ([]model.SimulationResult, error) {
	docs, err := findAll[resultDoc](ctx, s.db.Collection(colResults), bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	if err != nil {
		return nil, err
	}
	out := make([]model.SimulationResult, len(docs))
	for i, d := range docs {
		if err := json.Unmarshal([]byte(d.Payload), &out[i]); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", d.ID, err)
		}
	}
	return out, nil
}

func (s *Store) DeleteAllResults(ctx context.Context) error {
	_, err := s.db.Collection(colResults).DeleteMany(ctx, bson.M{})
	return err
}

type managerDoc struct {
	ID           string `bson:"_id"`
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
}

// CreateManager stores a manager; usernames are stored lower-cased.
func (s *Store) CreateManager(ctx context.Context, m model.Manager) (model.Manager, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	_, err := s.db.Collection(colManagers).InsertOne(ctx, managerDoc{
		ID: m.ID, Username: strings.ToLower(m.Username), PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt.UnixNano(),
	})
	if err != nil {
		return model.Manager{}, mapErr(err, "manager "+m.Username)
	}
	return m, nil
}

func (s *Store) GetManagerByUsername(ctx context.Context, username string) (model.Manager, error) {
	var doc managerDoc
	err := s.db.Collection(colManagers).FindOne(ctx, bson.M{"username": strings.ToLower(username)}).Decode(&doc)
	if err != nil {
		return model.Manager{}, mapErr(err, "manager "+username)
	}
	return model.Manager{ID: doc.ID, Username: doc.Username, PasswordHash: doc.PasswordHash, CreatedAt: time.Unix(0, doc.CreatedAt).UTC()}, nil
}

// Snapshot reads the three collections one after another. Writers running at
// the same time may be partially visible.
func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	var snap store.Snapshot
	var err error
	if snap.Drivers, err = s.ListDrivers(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("drivers: %w", err)
	}
	if snap.Routes, err = s.ListRoutes(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("routes: %w", err)
	}
	if snap.Orders, err = s.ListOrders(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("orders: %w", err)
	}
	return snap, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func init() {
	if err := store.RegisterBackend("mongo", func(conf map[string]any) (store.Store, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return Open(ctx, cfg)
	}); err != nil {
		panic(err)
	}
}
