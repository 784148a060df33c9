package domain

import "github.com/couchcryptid/sep-forecast-service/internal/model"

// CharacteristicsEngine maps forecast probabilities to peak-flux estimates
// through the piecewise linear calibration of a parameter table.
type CharacteristicsEngine struct {
	cal model.Characteristics
}

// NewCharacteristicsEngine creates an engine over a validated table.
func NewCharacteristicsEngine(table *model.Table) *CharacteristicsEngine {
	return &CharacteristicsEngine{cal: table.Characteristics}
}

// Characteristics estimates 50% and 90% confidence peak fluxes for one trigger
// set from its forecast. Thresholds without a matching calibration stay nil.
func (e *CharacteristicsEngine) Characteristics(ts TriggerSet, f SEPForecast) SEPCharacteristics {
	var out SEPCharacteristics

	p := normalizeProbabilities(f)
	tier, ok := e.tier(p)
	if !ok {
		return out
	}
	bin, ok := e.match(Classify(ts), tier, ts)
	if !ok {
		return out
	}

	for i, energy := range FluxEnergies {
		a, ok := bin.Coefficients[energy]
		if !ok || f.At(energy).Probability == nil {
			continue
		}
		b := e.cal.Floors[energy]
		out.Flux[i] = PeakFlux{
			CL50: ptr(blend(a.A50, b.B50, p[i])),
			CL90: ptr(blend(a.A90, b.B90, p[i])),
		}
	}
	return out
}

// normalizeProbabilities reads the flux-threshold probabilities of a forecast,
// treating an unmodeled (nil) probability as no expected event.
func normalizeProbabilities(f SEPForecast) [4]float64 {
	var p [4]float64
	for i, energy := range FluxEnergies {
		if v := f.At(energy).Probability; v != nil {
			p[i] = *v
		}
	}
	return p
}

// tier selects the highest threshold whose probability reaches its cutoff.
func (e *CharacteristicsEngine) tier(p [4]float64) (int, bool) {
	for i := len(FluxEnergies) - 1; i >= 0; i-- {
		energy := FluxEnergies[i]
		if p[i] >= e.cal.Cutoffs[energy] {
			return energy, true
		}
	}
	return 0, false
}

// match returns the first calibration bin of the tier that accepts the trigger set.
func (e *CharacteristicsEngine) match(c Category, tier int, ts TriggerSet) (model.Bin, bool) {
	for _, b := range e.cal.Bins {
		if b.Tier != tier || b.Combination != string(c.Combination) {
			continue
		}
		if b.Magnitude != nil && (ts.Flare == nil || !b.Magnitude.Contains(ts.Flare.Magnitude)) {
			continue
		}
		if b.Velocity != nil && (ts.CME == nil || !b.Velocity.Contains(ts.CME.Velocity)) {
			continue
		}
		if b.Halo != nil && (ts.CME == nil || (c.Width == Halo) != *b.Halo) {
			continue
		}
		return b, true
	}
	return model.Bin{}, false
}

// blend interpolates between the event estimate a and the background floor b.
func blend(a, b, p float64) float64 {
	return a*p + b*(1-p)
}
