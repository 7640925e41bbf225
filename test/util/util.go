// Package util holds the container helpers used by the integration tests.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresReadyTimeout  = 60 * time.Second
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`

// startContainer runs req and returns host:port for the given container port.
func startContainer(ctx context.Context, req tc.ContainerRequest, port string) (string, func(), error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, fmt.Errorf("start %s: %w", req.Image, err)
	}
	stop := func() { _ = cont.Terminate(context.Background()) }
	host, err := cont.Host(ctx)
	if err != nil {
		stop()
		return "", nil, err
	}
	mapped, err := cont.MappedPort(ctx, nat.Port(port))
	if err != nil {
		stop()
		return "", nil, err
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), stop, nil
}

// StartPostgres launches postgres:16-alpine and returns a pgx DSN along with
// a cleanup function.
func StartPostgres(ctx context.Context) (string, func(), error) {
	addr, stop, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "fleetops",
			"POSTGRES_PASSWORD": "fleetops",
			"POSTGRES_DB":       "fleetops",
		},
		// The server logs readiness once for the init run and once for real.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(PostgresReadyTimeout),
	}, "5432")
	if err != nil {
		return "", nil, err
	}
	return "postgres://fleetops:fleetops@" + addr + "/fleetops?sslmode=disable", stop, nil
}

// StartMosquitto launches an anonymous eclipse-mosquitto broker and returns
// its tcp:// URL once it accepts MQTT connections.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	addr, stop, err := startContainer(ctx, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}, "1883")
	if err != nil {
		return "", nil, err
	}
	broker := "tcp://" + addr

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		stop()
		return "", nil, err
	}
	return broker, stop, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("fleetops-probe")
	return poll(ctx, func() bool {
		cli := paho.NewClient(opts)
		tok := cli.Connect()
		if tok.Wait() && tok.Error() == nil {
			cli.Disconnect(100)
			return true
		}
		return false
	})
}

// WaitForMetric polls metricsURL until substr appears in the exposition.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	err := poll(ctx, func() bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		if err != nil {
			return false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), substr)
	})
	if err != nil {
		return fmt.Errorf("metric %q not found: %w", substr, err)
	}
	return nil
}

func poll(ctx context.Context, ok func() bool) error {
	for {
		if ok() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
