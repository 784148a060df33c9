// Package model holds the fitted parameter tables of the SEP forecast model.
//
// The tables are a versioned YAML asset. The default asset is embedded in the
// binary; an alternative file can be loaded at startup to deploy a refit
// without a code change.
package model

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prosper.yaml
var defaultAsset []byte

// Signal names the trigger attribute a lognormal fit is evaluated on.
type Signal string

const (
	SignalVelocity  Signal = "velocity"  // CME plane-of-sky speed, km/s
	SignalMagnitude Signal = "magnitude" // flare soft X-ray peak flux, W/m^2
)

// Energies are the integral proton thresholds (MeV) with a probability model.
var Energies = []int{10, 30, 60, 100, 300}

// FluxEnergies are the thresholds with a peak-flux calibration.
var FluxEnergies = []int{10, 30, 100, 300}

// Combinations are the trigger combinations a calibration bin may apply to.
var Combinations = []string{"both", "flare_only", "cme_only"}

// Table is the complete parameter set of one model version.
type Table struct {
	Version         string          `yaml:"version"`
	Probability     Probability     `yaml:"probability"`
	Characteristics Characteristics `yaml:"characteristics"`
}

// Probability holds the per-category likelihood tables.
type Probability struct {
	Categories map[string]Category `yaml:"categories"`
}

// Category is the table for one trigger category, keyed by threshold energy.
type Category struct {
	AWT        map[int]float64   `yaml:"awt"`
	Errors     map[int][]float64 `yaml:"errors"`
	Thresholds map[int]Threshold `yaml:"thresholds"`
}

// Threshold is either a constant probability or a population mixture.
type Threshold struct {
	Constant    *float64     `yaml:"constant"`
	Populations []Population `yaml:"populations"`
}

// Population is one mixture component with its prior weight.
type Population struct {
	Name    string      `yaml:"name"`
	SEP     bool        `yaml:"sep"`
	Weight  float64     `yaml:"weight"`
	Signals []Lognormal `yaml:"signals"`
}

// Lognormal is a fit of log10(x) with mean Mu and deviation Sigma.
type Lognormal struct {
	Signal Signal  `yaml:"signal"`
	Mu     float64 `yaml:"mu"`
	Sigma  float64 `yaml:"sigma"`
}

// Characteristics holds the peak-flux calibration.
type Characteristics struct {
	Cutoffs map[int]float64 `yaml:"cutoffs"`
	Floors  map[int]Floor   `yaml:"floors"`
	Bins    []Bin           `yaml:"bins"`
}

// Floor is the no-event background flux of a threshold.
type Floor struct {
	B50 float64 `yaml:"b50"`
	B90 float64 `yaml:"b90"`
}

// Coefficient is the event-driven flux estimate of a threshold.
type Coefficient struct {
	A50 float64 `yaml:"a50"`
	A90 float64 `yaml:"a90"`
}

// Bin is one leaf of the calibration cascade.
type Bin struct {
	Combination  string              `yaml:"combination"`
	Tier         int                 `yaml:"tier"`
	Magnitude    *Range              `yaml:"magnitude"`
	Velocity     *Range              `yaml:"velocity"`
	Halo         *bool               `yaml:"halo"`
	Coefficients map[int]Coefficient `yaml:"coefficients"`
}

// Range is a half-open interval [Min, Max). A nil bound is unbounded.
type Range struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Contains reports whether x lies in the range. A nil range contains everything.
func (r *Range) Contains(x float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && x < *r.Min {
		return false
	}
	if r.Max != nil && x >= *r.Max {
		return false
	}
	return true
}

// String renders the range in interval notation.
func (r *Range) String() string {
	if r == nil {
		return "(-inf, inf)"
	}
	lo, hi := "-inf", "inf"
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
	}
	return "[" + lo + ", " + hi + ")"
}

// Default returns the embedded parameter table.
func Default() (*Table, error) {
	t, err := Parse(defaultAsset)
	if err != nil {
		return nil, fmt.Errorf("embedded model: %w", err)
	}
	return t, nil
}

// Load reads a parameter table from path. An empty path selects the embedded table.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	t, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML parameter table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Category returns the table for key, if present.
func (t *Table) Category(key string) (Category, bool) {
	c, ok := t.Probability.Categories[key]
	return c, ok
}
