package domain

import (
	"math"

	"github.com/couchcryptid/sep-forecast-service/internal/model"
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// lognormalPDF is the density at x > 0 of a variable whose log10 is normal(mu, sigma).
func lognormalPDF(x, mu, sigma float64) float64 {
	z := (math.Log10(x) - mu) / (math.Sqrt2 * sigma)
	return 1 / (x * sigma * math.Ln10 * sqrt2Pi) * math.Exp(-z*z)
}

// ProbabilityEngine computes naive-Bayes SEP probabilities from a parameter table.
// It holds no mutable state and is safe for concurrent use.
type ProbabilityEngine struct {
	table *model.Table
}

// NewProbabilityEngine creates an engine over a validated table.
func NewProbabilityEngine(table *model.Table) *ProbabilityEngine {
	return &ProbabilityEngine{table: table}
}

// Forecast evaluates one trigger set. It returns ErrInvalidTrigger for values
// outside the domain of the fits; unmodeled thresholds are nil, not errors.
func (e *ProbabilityEngine) Forecast(ts TriggerSet) (SEPForecast, error) {
	if err := ts.Validate(); err != nil {
		return SEPForecast{}, err
	}

	f := SEPForecast{Category: Classify(ts)}
	if noFlareSignal(ts) {
		return f, nil
	}
	cat, ok := e.table.Category(f.Category.Key())
	if !ok {
		return f, nil
	}

	for i, energy := range ProbabilityEnergies {
		t := &f.Thresholds[i]
		if awt, ok := cat.AWT[energy]; ok {
			t.AWT = ptr(awt)
		}
		if b := cat.Errors[energy]; len(b) == 3 {
			t.Errors = &ErrorBounds{b[0], b[1], b[2]}
		}
		if th, ok := cat.Thresholds[energy]; ok {
			t.Probability = posterior(th, ts)
		}
	}
	return f, nil
}

// posterior returns w_sep*L_sep / sum(w_p*L_p), or the table constant.
// A mixture whose every likelihood underflows has no defined posterior.
func posterior(th model.Threshold, ts TriggerSet) *float64 {
	if th.Constant != nil {
		return ptr(*th.Constant)
	}
	var num, den float64
	for _, p := range th.Populations {
		term, ok := weightedLikelihood(p, ts)
		if !ok {
			return nil
		}
		if p.SEP {
			num = term
		}
		den += term
	}
	if den == 0 || !isFinite(den) {
		return nil
	}
	return ptr(num / den)
}

// weightedLikelihood is the prior weight times the product of the signal
// densities (conditional independence), multiplied left to right. It fails
// when a fit names a signal the trigger set does not carry.
func weightedLikelihood(p model.Population, ts TriggerSet) (float64, bool) {
	l := p.Weight
	for _, s := range p.Signals {
		x, ok := signalValue(s.Signal, ts)
		if !ok {
			return 0, false
		}
		l *= lognormalPDF(x, s.Mu, s.Sigma)
	}
	return l, true
}

func signalValue(s model.Signal, ts TriggerSet) (float64, bool) {
	switch {
	case s == model.SignalVelocity && ts.CME != nil:
		return ts.CME.Velocity, true
	case s == model.SignalMagnitude && ts.Flare != nil:
		return ts.Flare.Magnitude, true
	}
	return 0, false
}
