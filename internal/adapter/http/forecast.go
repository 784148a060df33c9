package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
)

const (
	maxRequestBytes = 1 << 20
	maxTriggerSets  = 1000
)

// Engines bundles what the forecast endpoint evaluates a request with.
type Engines struct {
	Forecaster    domain.Forecaster
	Characterizer domain.Characterizer
	Workers       int
}

type forecastRequest struct {
	TriggerSets []domain.TriggerSet `json:"trigger_sets"`
}

type forecastResponse struct {
	Probabilities   []domain.SEPForecast        `json:"sep_probabilities"`
	Characteristics []domain.SEPCharacteristics `json:"sep_characteristics"`
}

type forecastHandler struct {
	engines Engines
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (h *forecastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.reject(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.TriggerSets) > maxTriggerSets {
		h.reject(w, fmt.Errorf("%d trigger sets exceeds the limit of %d", len(req.TriggerSets), maxTriggerSets))
		return
	}

	forecasts, err := domain.Forecasts(r.Context(), h.engines.Forecaster, req.TriggerSets, h.engines.Workers)
	if errors.Is(err, domain.ErrInvalidTrigger) {
		h.reject(w, err)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	chars, err := domain.Characterize(r.Context(), h.engines.Characterizer, req.TriggerSets, forecasts, h.engines.Workers)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.metrics.APIRequests.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, forecastResponse{Probabilities: forecasts, Characteristics: chars})
}

func (h *forecastHandler) reject(w http.ResponseWriter, err error) {
	h.metrics.APIRequests.WithLabelValues("invalid").Inc()
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (h *forecastHandler) fail(w http.ResponseWriter, err error) {
	h.metrics.APIRequests.WithLabelValues("error").Inc()
	h.logger.Error("forecast request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "forecast failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
