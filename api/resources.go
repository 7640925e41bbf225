package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

type driverRequest struct {
	Name          string   `json:"name" validate:"required"`
	ShiftHours    float64  `json:"shift_hours" validate:"gte=0"`
	PastWeekHours []string `json:"past_week_hours" validate:"max=7,dive,hours"`
}

func (d driverRequest) toDriver(id string) model.Driver {
	hours := make([]string, len(d.PastWeekHours))
	for i, h := range d.PastWeekHours {
		hours[i] = strings.TrimSpace(h)
	}
	return model.Driver{ID: id, Name: d.Name, ShiftHours: d.ShiftHours, PastWeekHours: hours}
}

type routeRequest struct {
	RouteID      *int    `json:"route_id" validate:"required,gte=0"`
	DistanceKM   float64 `json:"distance_km" validate:"gte=0"`
	TrafficLevel string  `json:"traffic_level" validate:"omitempty,traffic"`
	BaseTimeMin  float64 `json:"base_time_min" validate:"gte=0"`
}

func (rr routeRequest) toRoute() model.Route {
	lvl, _ := model.ParseTrafficLevel(rr.TrafficLevel)
	return model.Route{RouteID: *rr.RouteID, DistanceKM: rr.DistanceKM, TrafficLevel: lvl, BaseTimeMin: rr.BaseTimeMin}
}

type orderRequest struct {
	OrderID      string   `json:"order_id" validate:"required"`
	ValueRs      *float64 `json:"value_rs" validate:"required,gte=0"`
	RouteID      *int     `json:"route_id" validate:"omitempty,gte=0"`
	DeliveryTime string   `json:"delivery_time" validate:"required,clock"`
}

func (o orderRequest) toOrder() model.Order {
	t, _ := model.ParseTimeOfDay(o.DeliveryTime)
	return model.Order{OrderID: o.OrderID, ValueRs: *o.ValueRs, RouteID: o.RouteID, DeliveryTime: t}
}

// storeError maps repository errors to responses. kind is the capitalised
// resource name used in messages.
func (s *Server) storeError(w http.ResponseWriter, kind string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, kind+" not found")
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, kind+" already exists")
	default:
		s.log.Errorf("%s store: %v", strings.ToLower(kind), err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, chi.URLParam(r, name))
	}
	return v, nil
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.store.ListDrivers(r.Context())
	if err != nil {
		s.storeError(w, "Driver", err)
		return
	}
	if drivers == nil {
		drivers = []model.Driver{}
	}
	respondJSON(w, http.StatusOK, drivers)
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !bind(w, r, &req, func() { req.Name = strings.TrimSpace(req.Name) }) {
		return
	}
	d, err := s.store.CreateDriver(r.Context(), req.toDriver(""))
	if err != nil {
		s.storeError(w, "Driver", err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !bind(w, r, &req, func() { req.Name = strings.TrimSpace(req.Name) }) {
		return
	}
	d, err := s.store.UpdateDriver(r.Context(), req.toDriver(chi.URLParam(r, "id")))
	if err != nil {
		s.storeError(w, "Driver", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDriver(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, "Driver", err)
		return
	}
	respondMessage(w, http.StatusOK, "Driver deleted")
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.store.ListRoutes(r.Context())
	if err != nil {
		s.storeError(w, "Route", err)
		return
	}
	if routes == nil {
		routes = []model.Route{}
	}
	respondJSON(w, http.StatusOK, routes)
}

func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !bind(w, r, &req, nil) {
		return
	}
	route := req.toRoute()
	if err := s.store.CreateRoute(r.Context(), route); err != nil {
		s.storeError(w, "Route", err)
		return
	}
	respondJSON(w, http.StatusCreated, route)
}

func (s *Server) handleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req routeRequest
	if !bind(w, r, &req, func() { req.RouteID = &id }) {
		return
	}
	route := req.toRoute()
	if err := s.store.UpdateRoute(r.Context(), route); err != nil {
		s.storeError(w, "Route", err)
		return
	}
	respondJSON(w, http.StatusOK, route)
}

func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteRoute(r.Context(), id); err != nil {
		s.storeError(w, "Route", err)
		return
	}
	respondMessage(w, http.StatusOK, "Route deleted")
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, "Order", err)
		return
	}
	respondJSON(w, http.StatusOK, store.PopulateRoutes(snap.Orders, snap.Routes))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !bind(w, r, &req, func() { req.OrderID = strings.TrimSpace(req.OrderID) }) {
		return
	}
	o := req.toOrder()
	if err := s.store.CreateOrder(r.Context(), o); err != nil {
		s.storeError(w, "Order", err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !bind(w, r, &req, func() { req.OrderID = chi.URLParam(r, "id") }) {
		return
	}
	o := req.toOrder()
	if err := s.store.UpdateOrder(r.Context(), o); err != nil {
		s.storeError(w, "Order", err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, "Order", err)
		return
	}
	respondMessage(w, http.StatusOK, "Order deleted")
}
