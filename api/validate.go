package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/fleetops/core/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared request validator. Field names in errors
// follow the JSON tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("traffic", validateTraffic)
		_ = validate.RegisterValidation("hours", validateHours)
		_ = validate.RegisterValidation("clock", validateClock)
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

func validateTraffic(fl validator.FieldLevel) bool {
	_, ok := model.ParseTrafficLevel(fl.Field().String())
	return ok
}

func validateHours(fl validator.FieldLevel) bool {
	h, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	return err == nil && h >= 0 && h <= 24
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := model.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []FieldError `json:"errors"`
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: fieldPath(e), Message: formatValidationError(e)})
	}
	return out
}

// fieldPath drops the request struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", e.Field(), e.Param())
	case "traffic":
		return "traffic_level must be one of Low, Medium, High"
	case "hours":
		return "each past_week_hours entry must be a number of hours between 0 and 24"
	case "clock":
		return "delivery_time must be HH:MM"
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
	}
}

// bind decodes the body into v and validates it. It writes the error response
// and returns false on failure.
func bind(w http.ResponseWriter, r *http.Request, v any, normalize func()) bool {
	if err := decodeJSON(r, v); err != nil {
		respondJSON(w, http.StatusBadRequest, validationResponse{Errors: []FieldError{{Message: "invalid JSON body: " + err.Error()}}})
		return false
	}
	if normalize != nil {
		normalize()
	}
	if err := Validator().Struct(v); err != nil {
		respondJSON(w, http.StatusBadRequest, validationResponse{Errors: fieldErrors(err)})
		return false
	}
	return true
}
