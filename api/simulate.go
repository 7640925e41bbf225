package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/simulation"
	"github.com/kilianp07/fleetops/core/simulation/runlog"
)

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var in model.SimulationInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSON(w, http.StatusBadRequest, validationResponse{Errors: []FieldError{{Message: "invalid JSON body: " + err.Error()}}})
		return
	}
	res, err := s.sim.Run(r.Context(), in)
	var inputErr *simulation.InputError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, res)
	case errors.As(err, &inputErr):
		respondJSON(w, http.StatusBadRequest, validationResponse{Errors: []FieldError{{Field: inputErr.Field, Message: inputErr.Reason}}})
	case errors.Is(err, simulation.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simulation.ErrInsufficientDrivers):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "simulation failed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	results, err := s.sim.History(r.Context())
	if err != nil {
		s.log.Errorf("simulation history: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []model.SimulationResult{}
	}
	respondJSON(w, http.StatusOK, results)
}

// handleRuns exposes the audit log. Filters: start and end (RFC3339),
// outcome and limit.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseRunQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.sim.RunLog().Query(r.Context(), q)
	if err != nil {
		s.log.Errorf("run log query: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []runlog.Record{}
	}
	respondJSON(w, http.StatusOK, records)
}

func parseRunQuery(r *http.Request) (runlog.Query, error) {
	q := runlog.Query{}
	values := r.URL.Query()
	if s := values.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid start: %w", err)
		}
		q.Start = t
	}
	if s := values.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid end: %w", err)
		}
		q.End = t
	}
	if s := values.Get("outcome"); s != "" {
		o := model.RunOutcome(s)
		if !o.Valid() {
			return q, fmt.Errorf("unknown outcome %q", s)
		}
		q.Outcome = o
	}
	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	return q, nil
}

func (s *Server) handleLoadData(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		respondError(w, http.StatusServiceUnavailable, "data import is not configured")
		return
	}
	rep, err := s.loader.Load(r.Context(), s.opts.ImportDir)
	if err != nil {
		s.log.Errorf("load data from %s: %v", s.opts.ImportDir, err)
		respondError(w, http.StatusInternalServerError, "Failed to load data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "CSV data loaded successfully.",
		"report":  rep,
	})
}
