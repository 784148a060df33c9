package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// ErrInvalidModel is returned when a parameter table fails validation.
var ErrInvalidModel = errors.New("invalid model")

// Validate checks the structural invariants the engines rely on.
func (t *Table) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidModel)
	}
	if len(t.Probability.Categories) == 0 {
		return fmt.Errorf("%w: no probability categories", ErrInvalidModel)
	}
	for _, key := range sortedKeys(t.Probability.Categories) {
		if err := t.Probability.Categories[key].validate(); err != nil {
			return fmt.Errorf("%w: category %s: %w", ErrInvalidModel, key, err)
		}
	}
	if err := t.Characteristics.validate(); err != nil {
		return fmt.Errorf("%w: characteristics: %w", ErrInvalidModel, err)
	}
	return nil
}

func (c Category) validate() error {
	for e, v := range c.AWT {
		if !slices.Contains(Energies, e) {
			return fmt.Errorf("awt: unknown threshold %d", e)
		}
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("awt %d: %g is not a valid lead time", e, v)
		}
	}
	for e, bounds := range c.Errors {
		if !slices.Contains(Energies, e) {
			return fmt.Errorf("errors: unknown threshold %d", e)
		}
		if bounds != nil && len(bounds) != 3 {
			return fmt.Errorf("errors %d: want 3 bounds, got %d", e, len(bounds))
		}
	}
	for e, th := range c.Thresholds {
		if !slices.Contains(Energies, e) {
			return fmt.Errorf("unknown threshold %d", e)
		}
		if err := th.validate(); err != nil {
			return fmt.Errorf("threshold %d: %w", e, err)
		}
	}
	return nil
}

func (th Threshold) validate() error {
	if th.Constant != nil {
		if len(th.Populations) > 0 {
			return errors.New("constant and populations are mutually exclusive")
		}
		if p := *th.Constant; !isFinite(p) || p < 0 || p > 1 {
			return fmt.Errorf("constant %g outside [0, 1]", p)
		}
		return nil
	}
	if len(th.Populations) == 0 {
		return errors.New("no populations")
	}
	sep := 0
	var arity int
	for i, p := range th.Populations {
		if p.SEP {
			sep++
		}
		if !isFinite(p.Weight) || p.Weight < 0 {
			return fmt.Errorf("population %s: weight %g must be non-negative", p.Name, p.Weight)
		}
		if len(p.Signals) == 0 || len(p.Signals) > 2 {
			return fmt.Errorf("population %s: want 1 or 2 signals, got %d", p.Name, len(p.Signals))
		}
		if i == 0 {
			arity = len(p.Signals)
		} else if len(p.Signals) != arity {
			return fmt.Errorf("population %s: signal count differs from %s", p.Name, th.Populations[0].Name)
		}
		for _, s := range p.Signals {
			if s.Signal != SignalVelocity && s.Signal != SignalMagnitude {
				return fmt.Errorf("population %s: unknown signal %q", p.Name, s.Signal)
			}
			if !isFinite(s.Mu) || !isFinite(s.Sigma) || s.Sigma <= 0 {
				return fmt.Errorf("population %s: invalid fit mu=%g sigma=%g", p.Name, s.Mu, s.Sigma)
			}
		}
	}
	if sep != 1 {
		return fmt.Errorf("want exactly one sep population, got %d", sep)
	}
	return nil
}

func (c Characteristics) validate() error {
	for _, e := range FluxEnergies {
		cut, ok := c.Cutoffs[e]
		if !ok {
			return fmt.Errorf("missing cutoff for %d MeV", e)
		}
		if !isFinite(cut) || cut <= 0 || cut > 1 {
			return fmt.Errorf("cutoff %d: %g outside (0, 1]", e, cut)
		}
		if _, ok := c.Floors[e]; !ok {
			return fmt.Errorf("missing floor for %d MeV", e)
		}
	}
	for i, b := range c.Bins {
		if !slices.Contains(Combinations, b.Combination) {
			return fmt.Errorf("bin %d: unknown combination %q", i, b.Combination)
		}
		if !slices.Contains(FluxEnergies, b.Tier) {
			return fmt.Errorf("bin %d: unknown tier %d", i, b.Tier)
		}
		if err := b.Magnitude.validate(); err != nil {
			return fmt.Errorf("bin %d: magnitude %w", i, err)
		}
		if err := b.Velocity.validate(); err != nil {
			return fmt.Errorf("bin %d: velocity %w", i, err)
		}
		for e := range b.Coefficients {
			if !slices.Contains(FluxEnergies, e) || e > b.Tier {
				return fmt.Errorf("bin %d: coefficient for %d MeV above tier %d", i, e, b.Tier)
			}
		}
	}
	return nil
}

func (r *Range) validate() error {
	if r == nil || r.Min == nil || r.Max == nil {
		return nil
	}
	if *r.Min >= *r.Max {
		return fmt.Errorf("range %s is empty", r)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
