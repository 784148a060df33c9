package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// ProbabilityEnergies are the thresholds (MeV) of an SEPForecast, in output order.
var ProbabilityEnergies = [5]int{10, 30, 60, 100, 300}

// FluxEnergies are the thresholds (MeV) of an SEPCharacteristics, in output order.
var FluxEnergies = [4]int{10, 30, 100, 300}

// ErrorBounds are the 1, 2 and 3 sigma absolute probability errors of a category.
type ErrorBounds [3]float64

// ThresholdForecast is the forecast for a single energy threshold.
// Nil fields are unmodeled.
type ThresholdForecast struct {
	Probability *float64
	AWT         *float64 // mean advance warning time, minutes
	Errors      *ErrorBounds
}

// SEPForecast is the probability engine output for one trigger set.
type SEPForecast struct {
	Category   Category
	Thresholds [5]ThresholdForecast // indexed like ProbabilityEnergies
}

// At returns the forecast for energy e. Unknown energies yield an empty forecast.
func (f SEPForecast) At(e int) ThresholdForecast {
	for i, pe := range ProbabilityEnergies {
		if pe == e {
			return f.Thresholds[i]
		}
	}
	return ThresholdForecast{}
}

// hasLookups reports whether any category lookup (AWT or errors) is attached.
func (f SEPForecast) hasLookups() bool {
	for _, t := range f.Thresholds {
		if t.AWT != nil || t.Errors != nil {
			return true
		}
	}
	return false
}

// MarshalJSON emits probability_<E>, awt_<E> and p_error_<E> keys. Forecasts
// without a category lookup (no usable trigger) carry only probability keys.
func (f SEPForecast) MarshalJSON() ([]byte, error) {
	withLookups := f.hasLookups()
	out := make(map[string]any, 3*len(ProbabilityEnergies))
	for i, e := range ProbabilityEnergies {
		t := f.Thresholds[i]
		suffix := strconv.Itoa(e)
		out["probability_"+suffix] = t.Probability
		if withLookups {
			out["awt_"+suffix] = t.AWT
			out["p_error_"+suffix] = t.Errors
		}
	}
	return json.Marshal(out)
}

// PeakFlux holds the median and 90th percentile peak-flux estimates (pfu).
type PeakFlux struct {
	CL50 *float64 `json:"50cl"`
	CL90 *float64 `json:"90cl"`
}

// SEPCharacteristics is the characteristics engine output for one trigger set.
type SEPCharacteristics struct {
	Flux [4]PeakFlux // indexed like FluxEnergies
}

// At returns the estimate for energy e. Unknown energies yield an empty estimate.
func (c SEPCharacteristics) At(e int) PeakFlux {
	for i, fe := range FluxEnergies {
		if fe == e {
			return c.Flux[i]
		}
	}
	return PeakFlux{}
}

// MarshalJSON emits {"10": {"50cl": v, "90cl": v}, ...}.
func (c SEPCharacteristics) MarshalJSON() ([]byte, error) {
	out := make(map[string]PeakFlux, len(FluxEnergies))
	for i, e := range FluxEnergies {
		out[strconv.Itoa(e)] = c.Flux[i]
	}
	return json.Marshal(out)
}

// ForecastRecord is a complete forecast as published downstream.
type ForecastRecord struct {
	ID              string             `json:"id"`
	Category        string             `json:"category"`
	IssuedAt        time.Time          `json:"issued_at"`
	Trigger         TriggerSet         `json:"trigger"`
	Forecast        SEPForecast        `json:"forecast"`
	Characteristics SEPCharacteristics `json:"characteristics"`
}

func ptr(v float64) *float64 { return &v }
