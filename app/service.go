package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/fleetops/api"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/events"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/core/simulation"
	"github.com/kilianp07/fleetops/core/simulation/runlog"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/infra/csvimport"
	"github.com/kilianp07/fleetops/infra/logger"
	inframon "github.com/kilianp07/fleetops/infra/monitoring"
	"github.com/kilianp07/fleetops/internal/eventbus"

	// Register storage backends, metrics sinks and notifiers.
	_ "github.com/kilianp07/fleetops/infra/archive"
	_ "github.com/kilianp07/fleetops/infra/kafka"
	_ "github.com/kilianp07/fleetops/infra/metrics"
	_ "github.com/kilianp07/fleetops/infra/mqtt"
	_ "github.com/kilianp07/fleetops/infra/storage/mongostore"
	_ "github.com/kilianp07/fleetops/infra/storage/sqlstore"
)

// Service wires storage, the simulation runner, notifications and the HTTP
// API from the configuration.
type Service struct {
	Store    store.Store
	Runner   *simulation.Runner
	Importer *csvimport.Importer

	cfg       *config.Config
	bus       *eventbus.Bus[events.SimulationEvent]
	sink      coremetrics.MetricsSink
	runs      runlog.Store
	notifiers *notify.Multi
	forwarded <-chan struct{}
	cancel    context.CancelFunc
	log       logger.Logger
}

// New creates a Service from the configuration. Completed simulations are
// forwarded to the configured notifiers until Close is called.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Type, err)
	}
	svc := &Service{Store: st, cfg: cfg, log: logg}
	cleanup := func(err error) (*Service, error) {
		if cerr := svc.Close(); cerr != nil {
			logg.Errorf("cleanup after failed start: %v", cerr)
		}
		return nil, err
	}

	svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return cleanup(fmt.Errorf("metrics sink: %w", err))
	}
	svc.runs, err = runlog.Open(cfg.RunLog)
	if err != nil {
		return cleanup(fmt.Errorf("run log: %w", err))
	}
	notifiers, err := notify.Build(cfg.Notify, logger.New("notify"))
	if err != nil {
		return cleanup(fmt.Errorf("notifiers: %w", err))
	}
	svc.notifiers = notify.NewMulti(notifiers...)

	svc.bus = eventbus.New[events.SimulationEvent]()
	svc.Runner, err = simulation.NewRunner(st, st, svc.sink, svc.bus, logger.New("simulation"))
	if err != nil {
		return cleanup(err)
	}
	svc.Runner.SetRunLog(svc.runs)

	svc.Importer, err = csvimport.NewImporter(st, svc.sink, logger.New("csvimport"))
	if err != nil {
		return cleanup(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	fwd := notify.NewForwarder(notifiers, svc.sink, cfg.Notify.Timeout, logger.New("notify"))
	svc.forwarded = fwd.Start(ctx, svc.bus)

	logg.Infof("service ready: storage=%s notifiers=%d run_log=%s", cfg.Storage.Type, len(notifiers), cfg.RunLog.Backend)
	return svc, nil
}

// Simulate runs one simulation with the configured collaborators.
func (s *Service) Simulate(ctx context.Context, in model.SimulationInput) (model.SimulationResult, error) {
	return s.Runner.Run(ctx, in)
}

// LoadData imports the CSV files from dir, or from the configured directory
// when dir is empty.
func (s *Service) LoadData(ctx context.Context, dir string) (csvimport.Report, error) {
	if dir == "" {
		dir = s.cfg.Import.Dir
	}
	return s.Importer.Load(ctx, dir)
}

// Run serves the HTTP API and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Import.LoadOnStart {
		rep, err := s.LoadData(ctx, "")
		if err != nil {
			s.log.Warnf("initial data load from %s failed: %v", s.cfg.Import.Dir, err)
		} else {
			s.log.Infof("initial data loaded: %d drivers, %d routes, %d orders",
				rep.Drivers.Loaded, rep.Routes.Loaded, rep.Orders.Loaded)
		}
	}

	srv, err := api.NewServer(api.Options{
		HTTP:        s.cfg.HTTP,
		Auth:        s.cfg.Auth,
		ImportDir:   s.cfg.Import.Dir,
		MetricsPath: s.cfg.Metrics.Path,
	}, s.Store, s.Runner, s.Importer, logger.New("api"))
	if err != nil {
		return err
	}
	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	coremon.Go(func() {
		s.log.Infof("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	})

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	s.log.Infof("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close stops notification forwarding and releases every resource.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
	}
	if s.forwarded != nil {
		select {
		case <-s.forwarded:
		case <-time.After(s.cfg.Notify.Timeout):
			s.log.Warnf("notification forwarding did not drain in time")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.notifiers != nil {
		errs = append(errs, s.notifiers.Close())
	}
	if s.runs != nil {
		errs = append(errs, s.runs.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
