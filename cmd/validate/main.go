// Command validate checks a parameter table before it is deployed. It loads
// the table, checks category coverage, sweeps a grid of trigger sets for
// probability and peak-flux invariants, and compares reference scenarios
// against expected values.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -model deploy/prosper.yaml \
//	  -scenarios testdata/reference_scenarios.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/model"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelPath := flag.String("model", "", "parameter table to validate (default: embedded)")
	scenarioPath := flag.String("scenarios", "", "reference scenarios JSON (default: built-in)")
	tolerance := flag.Float64("tolerance", 1e-9, "absolute tolerance for scenario probabilities")
	flag.Parse()

	os.Exit(run(*modelPath, *scenarioPath, *tolerance))
}

func run(modelPath, scenarioPath string, tolerance float64) int {
	fmt.Println("=== SEP Parameter Table Validation ===")
	fmt.Println()

	table, err := model.Load(modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	scenarios := builtinScenarios
	if scenarioPath != "" {
		scenarios, err = loadScenarios(scenarioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load scenarios: %v\n", err)
			return 1
		}
	}

	pe := domain.NewProbabilityEngine(table)
	ce := domain.NewCharacteristicsEngine(table)
	grid := triggerGrid()

	phases := []*phase{
		validateCoverage(table),
		validateProbabilities(pe, grid),
		validateCharacteristics(pe, ce, grid),
		validateScenarios(pe, scenarios, tolerance),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Model %s: %d categories, %d characteristic bins, %d grid points, %d scenarios\n",
		table.Version, len(table.Probability.Categories), len(table.Characteristics.Bins), len(grid), len(scenarios))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateCoverage(table *model.Table) *phase {
	p := &phase{name: "Category coverage"}
	for _, c := range domain.Categories() {
		cat, ok := table.Category(c.Key())
		if !ok {
			p.errorf("%s: missing from table", c)
			continue
		}
		if c.Combination == domain.CombinationNeither {
			if len(cat.Thresholds) > 0 {
				p.errorf("%s: must not define thresholds", c)
			}
			continue
		}
		// Higher thresholds may be absent; they forecast null.
		if _, ok := cat.Thresholds[domain.ProbabilityEnergies[0]]; !ok {
			p.errorf("%s: no %d MeV threshold", c, domain.ProbabilityEnergies[0])
		}
		for _, e := range domain.ProbabilityEnergies {
			if _, ok := cat.AWT[e]; !ok {
				p.errorf("%s: no %d MeV warning time", c, e)
			}
		}
	}
	return p
}

func validateProbabilities(pe *domain.ProbabilityEngine, grid []domain.TriggerSet) *phase {
	p := &phase{name: "Probabilities within [0, 1]"}
	for _, ts := range grid {
		f, err := pe.Forecast(ts)
		if err != nil {
			p.errorf("%s: %v", describe(ts), err)
			continue
		}
		for _, e := range domain.ProbabilityEnergies {
			v := f.At(e).Probability
			if v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
				p.errorf("%s: %d MeV probability %g", describe(ts), e, *v)
			}
		}
	}
	return p
}

func validateCharacteristics(pe *domain.ProbabilityEngine, ce *domain.CharacteristicsEngine, grid []domain.TriggerSet) *phase {
	p := &phase{name: "Peak-flux estimates consistent"}
	for _, ts := range grid {
		f, err := pe.Forecast(ts)
		if err != nil {
			continue // reported by the probability phase
		}
		c := ce.Characteristics(ts, f)
		for _, e := range domain.FluxEnergies {
			pf := c.At(e)
			if (pf.CL50 == nil) != (pf.CL90 == nil) {
				p.errorf("%s: %d MeV has only one confidence level", describe(ts), e)
				continue
			}
			if pf.CL50 == nil {
				continue
			}
			if f.At(e).Probability == nil {
				p.errorf("%s: %d MeV flux without a probability", describe(ts), e)
			}
			if *pf.CL50 <= 0 || *pf.CL90 < *pf.CL50 {
				p.errorf("%s: %d MeV 50cl=%g 90cl=%g", describe(ts), e, *pf.CL50, *pf.CL90)
			}
		}
	}
	return p
}

func validateScenarios(pe *domain.ProbabilityEngine, scenarios []scenario, tolerance float64) *phase {
	p := &phase{name: "Reference scenarios"}
	for _, s := range scenarios {
		f, err := pe.Forecast(s.Trigger)
		if err != nil {
			p.errorf("%s: %v", s.Name, err)
			continue
		}
		if got := f.Category.Key(); s.Category != "" && got != s.Category {
			p.errorf("%s: category %s, want %s", s.Name, got, s.Category)
		}
		for key, want := range s.Probabilities {
			e, err := strconv.Atoi(key)
			if err != nil {
				p.errorf("%s: bad energy %q", s.Name, key)
				continue
			}
			got := f.At(e).Probability
			switch {
			case want == nil && got != nil:
				p.errorf("%s: %d MeV = %g, want null", s.Name, e, *got)
			case want != nil && got == nil:
				p.errorf("%s: %d MeV = null, want %g", s.Name, e, *want)
			case want != nil && math.Abs(*got-*want) > tolerance:
				p.errorf("%s: %d MeV = %.17g, want %.17g", s.Name, e, *got, *want)
			}
		}
	}
	return p
}

// ── Inputs ──

// triggerGrid spans every category across the observed range of each signal.
func triggerGrid() []domain.TriggerSet {
	longitudes := []float64{-90, -30, 19.9, 20, 45, 90}
	magnitudes := []float64{5e-7, 1e-6, 1e-5, 5e-5, 1e-4, 1e-3}
	widths := []float64{30, 119.9, 120, 250, 360}
	velocities := []float64{200, 450, 800, 1300, 2000, 3000}

	grid := []domain.TriggerSet{{}}
	for _, lon := range longitudes {
		for _, mag := range magnitudes {
			fl := &domain.Flare{Longitude: lon, Magnitude: mag}
			grid = append(grid, domain.TriggerSet{Flare: fl})
			for _, w := range widths {
				for _, v := range velocities {
					grid = append(grid, domain.TriggerSet{Flare: fl, CME: &domain.CME{Width: w, Velocity: v}})
				}
			}
		}
	}
	for _, w := range widths {
		for _, v := range velocities {
			grid = append(grid, domain.TriggerSet{CME: &domain.CME{Width: w, Velocity: v}})
		}
	}
	return grid
}

func describe(ts domain.TriggerSet) string {
	s := domain.Classify(ts).Key()
	if f := ts.Flare; f != nil {
		s += fmt.Sprintf(" lon=%g mag=%g", f.Longitude, f.Magnitude)
	}
	if c := ts.CME; c != nil {
		s += fmt.Sprintf(" width=%g v=%g", c.Width, c.Velocity)
	}
	return s
}

// scenario is a trigger set with expected probabilities keyed by energy.
type scenario struct {
	Name          string              `json:"name"`
	Trigger       domain.TriggerSet   `json:"trigger"`
	Category      string              `json:"category,omitempty"`
	Probabilities map[string]*float64 `json:"probabilities"`
}

func loadScenarios(path string) ([]scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []scenario
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fp(v float64) *float64 { return &v }

var builtinScenarios = []scenario{
	{
		Name:     "M5 western flare with fast halo CME",
		Trigger:  domain.TriggerSet{Flare: &domain.Flare{Longitude: 45, Magnitude: 5e-5}, CME: &domain.CME{Width: 360, Velocity: 1300}},
		Category: "both/well_connected/halo",
		Probabilities: map[string]*float64{
			"10":  fp(0.9836327822064588),
			"30":  fp(0.8380720989827979),
			"60":  fp(0),
			"100": fp(0.4935973231991509),
			"300": fp(0.9036976304575645),
		},
	},
	{
		Name:     "slow narrow CME",
		Trigger:  domain.TriggerSet{CME: &domain.CME{Width: 90, Velocity: 400}},
		Category: "cme_only/non_halo",
		Probabilities: map[string]*float64{
			"10":  fp(0.0030545804085836286),
			"300": nil,
		},
	},
	{
		Name:     "X2 western flare without CME",
		Trigger:  domain.TriggerSet{Flare: &domain.Flare{Longitude: 60, Magnitude: 2e-4}},
		Category: "flare_only/well_connected",
		Probabilities: map[string]*float64{
			"10":  fp(0.9915798681718865),
			"30":  fp(0.9154051750411244),
			"60":  fp(0.8644043357316661),
			"100": fp(0.7693785775641021),
			"300": fp(0.30250011173414515),
		},
	},
	{
		Name:     "no trigger",
		Trigger:  domain.TriggerSet{},
		Category: "neither",
		Probabilities: map[string]*float64{
			"10": nil, "30": nil, "60": nil, "100": nil, "300": nil,
		},
	},
}
