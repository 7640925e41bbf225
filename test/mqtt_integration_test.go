//go:build integration

package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/test/util"
)

func TestCompletedSimulationIsPublished(t *testing.T) {
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	received := make(chan []byte, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("fleetops-test-sub"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	t.Cleanup(func() { sub.Disconnect(100) })
	tok = sub.Subscribe("fleetops/simulations/#", 1, func(_ paho.Client, m paho.Message) {
		select {
		case received <- m.Payload():
		default:
		}
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	cfg := &config.Config{
		Notify: notifyConfig(broker),
	}
	cfg.SetDefaults()
	svc, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	_, err = svc.Store.CreateDriver(ctx, model.Driver{Name: "Amit", PastWeekHours: []string{"6"}})
	require.NoError(t, err)
	require.NoError(t, svc.Store.CreateRoute(ctx, model.Route{RouteID: 1, DistanceKM: 10, BaseTimeMin: 30}))
	rid := 1
	require.NoError(t, svc.Store.CreateOrder(ctx, model.Order{OrderID: "1", ValueRs: 500, RouteID: &rid, DeliveryTime: model.NewTimeOfDay(10, 0)}))

	res, err := svc.Simulate(ctx, model.SimulationInput{NumDrivers: 1, StartTime: "09:00", MaxHoursPerDriver: 8})
	require.NoError(t, err)

	select {
	case payload := <-received:
		var got model.SimulationResult
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, res.ID, got.ID)
		assert.InDelta(t, 450.0, got.KPIs.TotalProfit, 1e-9)
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}
}

func notifyConfig(broker string) notify.Config {
	return notify.Config{Sinks: []factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": broker, "client_id": "fleetops-test-pub", "qos": 1},
	}}}
}
