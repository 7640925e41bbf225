// Package api exposes the fleet data, the simulator and the CSV import over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/simulation/runlog"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/infra/csvimport"
)

// Simulator runs what-if simulations and lists their history.
type Simulator interface {
	Run(ctx context.Context, in model.SimulationInput) (model.SimulationResult, error)
	History(ctx context.Context) ([]model.SimulationResult, error)
	RunLog() runlog.Store
}

// DataLoader replaces operational data from a directory of CSV files.
type DataLoader interface {
	Load(ctx context.Context, dir string) (csvimport.Report, error)
}

// Options holds the settings the HTTP layer needs from the service config.
type Options struct {
	HTTP        config.HTTPConfig
	Auth        config.AuthConfig
	ImportDir   string
	MetricsPath string
}

// Server wires handlers to their collaborators.
type Server struct {
	opts    Options
	store   store.Store
	sim     Simulator
	loader  DataLoader
	auth    *Authenticator
	log     logger.Logger
	metrics http.Handler
	now     func() time.Time
}

// NewServer creates a server. loader may be nil, in which case
// POST /api/load-data answers 503.
func NewServer(opts Options, s store.Store, sim Simulator, loader DataLoader, log logger.Logger) (*Server, error) {
	if s == nil || sim == nil || log == nil {
		return nil, errors.New("api: nil parameter provided to NewServer")
	}
	if opts.Auth.JWTSecret == "" {
		return nil, errNoSecret
	}
	auth, err := NewAuthenticator(opts.Auth, s)
	if err != nil {
		return nil, err
	}
	return &Server{
		opts:    opts,
		store:   s,
		sim:     sim,
		loader:  loader,
		auth:    auth,
		log:     log,
		metrics: promhttp.Handler(),
		now:     time.Now,
	}, nil
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.opts.HTTP.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.HTTP.RequestTimeout))
	}
	r.Use(cors(s.opts.HTTP.CORSOrigins))

	if s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Route("/drivers", func(r chi.Router) {
				r.Get("/", s.handleListDrivers)
				r.Post("/", s.handleCreateDriver)
				r.Put("/{id}", s.handleUpdateDriver)
				r.Delete("/{id}", s.handleDeleteDriver)
			})
			r.Route("/routes", func(r chi.Router) {
				r.Get("/", s.handleListRoutes)
				r.Post("/", s.handleCreateRoute)
				r.Put("/{id}", s.handleUpdateRoute)
				r.Delete("/{id}", s.handleDeleteRoute)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", s.handleListOrders)
				r.Post("/", s.handleCreateOrder)
				r.Put("/{id}", s.handleUpdateOrder)
				r.Delete("/{id}", s.handleDeleteOrder)
			})
			r.Route("/simulate", func(r chi.Router) {
				r.Post("/", s.handleSimulate)
				r.Get("/", s.handleHistory)
				r.Get("/runs", s.handleRuns)
			})
			r.Post("/load-data", s.handleLoadData)
		})
	})
	return r
}

// HTTPServer returns an http.Server listening on the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.opts.HTTP.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.opts.HTTP.ReadTimeout,
		WriteTimeout: s.opts.HTTP.WriteTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Errorf("health check: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"ts":     s.now().UTC().Format(time.RFC3339Nano),
	})
}
