package mongostore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil, "x"))
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments, "driver d1"), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	assert.ErrorIs(t, mapErr(dup, "manager admin"), store.ErrConflict)

	other := errors.New("socket closed")
	err := mapErr(other, "route 1")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestDocConversions(t *testing.T) {
	ts := time.Date(2025, 4, 1, 10, 0, 0, 123, time.UTC)
	d := driverDoc{ID: "d1", Name: "Amit", PastWeekHours: []string{"9"}, CreatedAt: ts.UnixNano()}.model()
	assert.True(t, ts.Equal(d.CreatedAt))
	assert.True(t, d.Fatigued())

	r := routeDoc{RouteID: 4, TrafficLevel: "High", DistanceKM: 3}.model()
	assert.Equal(t, model.TrafficHigh, r.TrafficLevel)

	id := 4
	o := orderDoc{OrderID: "O1", RouteID: &id, DeliveryTime: 615}.model()
	assert.Equal(t, "10:15", o.DeliveryTime.String())
	assert.Equal(t, 4, *o.RouteID)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "mongodb://localhost:27017", c.URI)
	assert.Equal(t, "fleetops", c.Database)
	assert.Equal(t, 10*time.Second, c.ConnectTimeout)
}
