package domain

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/sep-forecast-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.May, 10, 6, 27, 0, 0, time.UTC)

func defaultTable(t *testing.T) *model.Table {
	t.Helper()
	tbl, err := model.Default()
	require.NoError(t, err)
	return tbl
}

func newTestEngines(t *testing.T) (*ProbabilityEngine, *CharacteristicsEngine) {
	t.Helper()
	tbl := defaultTable(t)
	return NewProbabilityEngine(tbl), NewCharacteristicsEngine(tbl)
}

func flare(longitude, magnitude float64) *Flare {
	return &Flare{Longitude: longitude, Magnitude: magnitude, Start: testStart}
}

func cme(width, velocity float64) *CME {
	return &CME{Width: width, Velocity: velocity, Start: testStart}
}

func TestLognormalPDF_Positive(t *testing.T) {
	for _, x := range []float64{1e-9, 5e-5, 1, 400, 1300, 1e5} {
		assert.Greater(t, lognormalPDF(x, 3.1578, 0.1749), 0.0, "x=%g", x)
	}
}

func TestLognormalPDF_IntegratesToOne(t *testing.T) {
	fits := []struct{ mu, sigma float64 }{
		{3.15780115128, 0.17488001287},   // halo sep velocity, 10 MeV
		{2.56826519966, 0.22966578603},   // non-halo not-sep velocity
		{-4.30615707813, 0.77544026801},  // well connected sep magnitude
		{-5.49096499172, 0.39712862763},  // poorly connected not-sep magnitude
		{3.29878282547, 0.11873473972},   // halo sep velocity, 300 MeV
	}
	for _, fit := range fits {
		// Integrate over y = log10(x), where dx = x*ln(10)*dy.
		lo, hi := fit.mu-12*fit.sigma, fit.mu+12*fit.sigma
		const n = 20000
		h := (hi - lo) / n
		var sum float64
		for i := 0; i <= n; i++ {
			y := lo + float64(i)*h
			x := math.Pow(10, y)
			v := lognormalPDF(x, fit.mu, fit.sigma) * x * math.Ln10
			if i == 0 || i == n {
				v /= 2
			}
			sum += v
		}
		assert.InDelta(t, 1.0, sum*h, 1e-6, "mu=%g sigma=%g", fit.mu, fit.sigma)
	}
}

func TestPosterior_DominantPopulation(t *testing.T) {
	fit := []model.Lognormal{{Signal: model.SignalVelocity, Mu: 3, Sigma: 0.2}}
	ts := TriggerSet{CME: cme(360, 1000)}

	sepDominant := model.Threshold{Populations: []model.Population{
		{Name: "sep", SEP: true, Weight: 1, Signals: fit},
		{Name: "not_sep", Weight: 1e-12, Signals: fit},
	}}
	p := posterior(sepDominant, ts)
	require.NotNil(t, p)
	assert.InDelta(t, 1.0, *p, 1e-9)

	notSepDominant := model.Threshold{Populations: []model.Population{
		{Name: "sep", SEP: true, Weight: 1e-12, Signals: fit},
		{Name: "not_sep", Weight: 1, Signals: fit},
	}}
	p = posterior(notSepDominant, ts)
	require.NotNil(t, p)
	assert.InDelta(t, 0.0, *p, 1e-9)
}

func TestPosterior_Constant(t *testing.T) {
	zero := 0.0
	p := posterior(model.Threshold{Constant: &zero}, TriggerSet{CME: cme(360, 1000)})
	require.NotNil(t, p)
	assert.Zero(t, *p)
}

func TestPosterior_UnderflowIsUnmodeled(t *testing.T) {
	th := model.Threshold{Populations: []model.Population{
		{Name: "sep", SEP: true, Weight: 1, Signals: []model.Lognormal{{Signal: model.SignalVelocity, Mu: 3, Sigma: 0.01}}},
		{Name: "not_sep", Weight: 1, Signals: []model.Lognormal{{Signal: model.SignalVelocity, Mu: 2, Sigma: 0.01}}},
	}}
	assert.Nil(t, posterior(th, TriggerSet{CME: cme(360, 1e9)}))
}

func TestPosterior_MissingSignalIsUnmodeled(t *testing.T) {
	th := model.Threshold{Populations: []model.Population{
		{Name: "sep", SEP: true, Weight: 1, Signals: []model.Lognormal{{Signal: model.SignalMagnitude, Mu: -4, Sigma: 0.5}}},
	}}
	assert.Nil(t, posterior(th, TriggerSet{CME: cme(360, 1000)}))
}

func TestForecast_WellConnectedHaloScenario(t *testing.T) {
	pe, _ := newTestEngines(t)
	ts := TriggerSet{Flare: flare(45, 5e-5), CME: cme(360, 1300)}

	f, err := pe.Forecast(ts)
	require.NoError(t, err)
	assert.Equal(t, "both/well_connected/halo", f.Category.Key())

	p10 := f.At(10).Probability
	require.NotNil(t, p10)
	assert.InDelta(t, 0.9836327822064588, *p10, 1e-9)

	// The posterior must move above the SEP prior toward 1.
	assert.Greater(t, *p10, 0.4680851)
	assert.Less(t, *p10, 1.0)

	want := map[int]float64{30: 0.8380720989827979, 60: 0, 100: 0.4935973231991509, 300: 0.9036976304575645}
	for e, v := range want {
		p := f.At(e).Probability
		require.NotNil(t, p, "%d MeV", e)
		assert.InDelta(t, v, *p, 1e-9, "%d MeV", e)
	}

	awt := f.At(10).AWT
	require.NotNil(t, awt)
	assert.InDelta(t, 189.78, *awt, 0)
	assert.Equal(t, &ErrorBounds{0.019044089, 0.016825785, 0.015605077}, f.At(10).Errors)
	assert.Nil(t, f.At(300).Errors)
}

func TestForecast_CMEOnlyNonHaloHasNo300(t *testing.T) {
	pe, _ := newTestEngines(t)
	f, err := pe.Forecast(TriggerSet{CME: cme(90, 400)})
	require.NoError(t, err)

	assert.Equal(t, "cme_only/non_halo", f.Category.Key())
	assert.Nil(t, f.At(300).Probability)
	require.NotNil(t, f.At(10).Probability)
	assert.InDelta(t, 0.0030545804085836286, *f.At(10).Probability, 1e-9)
	require.NotNil(t, f.At(300).AWT)
	assert.InDelta(t, 98.32, *f.At(300).AWT, 0)
}

func TestForecast_FlareOnly(t *testing.T) {
	pe, _ := newTestEngines(t)
	f, err := pe.Forecast(TriggerSet{Flare: flare(60, 2e-4)})
	require.NoError(t, err)

	assert.Equal(t, "flare_only/well_connected", f.Category.Key())
	want := []float64{0.9915798681718865, 0.9154051750411244, 0.8644043357316661, 0.7693785775641021, 0.30250011173414515}
	for i, e := range ProbabilityEnergies {
		p := f.At(e).Probability
		require.NotNil(t, p, "%d MeV", e)
		assert.InDelta(t, want[i], *p, 1e-9, "%d MeV", e)
	}
}

func TestForecast_Neither(t *testing.T) {
	pe, _ := newTestEngines(t)
	f, err := pe.Forecast(TriggerSet{})
	require.NoError(t, err)

	assert.Equal(t, CombinationNeither, f.Category.Combination)
	for _, e := range ProbabilityEnergies {
		assert.Equal(t, ThresholdForecast{}, f.At(e), "%d MeV", e)
	}
}

func TestForecast_FaintFlareWithCMEIsEmpty(t *testing.T) {
	pe, _ := newTestEngines(t)
	f, err := pe.Forecast(TriggerSet{Flare: flare(45, 5e-7), CME: cme(360, 1300)})
	require.NoError(t, err)

	assert.Equal(t, "both/well_connected/halo", f.Category.Key())
	for _, e := range ProbabilityEnergies {
		assert.Equal(t, ThresholdForecast{}, f.At(e), "%d MeV", e)
	}
}

func TestForecast_RejectsInvalidTriggers(t *testing.T) {
	pe, _ := newTestEngines(t)
	tests := []struct {
		name string
		ts   TriggerSet
	}{
		{"zero magnitude", TriggerSet{Flare: flare(45, 0)}},
		{"negative magnitude", TriggerSet{Flare: flare(45, -1e-5), CME: cme(360, 1000)}},
		{"NaN magnitude", TriggerSet{Flare: flare(45, math.NaN())}},
		{"NaN longitude", TriggerSet{Flare: flare(math.NaN(), 1e-5)}},
		{"zero velocity", TriggerSet{CME: cme(360, 0)}},
		{"infinite velocity", TriggerSet{CME: cme(360, math.Inf(1))}},
		{"negative width", TriggerSet{CME: cme(-5, 800)}},
		{"width above 360", TriggerSet{CME: cme(361, 800)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pe.Forecast(tt.ts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTrigger)
		})
	}
}

func TestForecast_Idempotent(t *testing.T) {
	pe, _ := newTestEngines(t)
	ts := TriggerSet{Flare: flare(10, 3e-5), CME: cme(250, 1100)}

	a, err := pe.Forecast(ts)
	require.NoError(t, err)
	b, err := pe.Forecast(ts)
	require.NoError(t, err)

	for _, e := range ProbabilityEnergies {
		pa, pb := a.At(e).Probability, b.At(e).Probability
		if pa == nil || pb == nil {
			assert.Equal(t, pa == nil, pb == nil, "%d MeV", e)
			continue
		}
		assert.Equal(t, math.Float64bits(*pa), math.Float64bits(*pb), "%d MeV", e)
	}
}

func TestForecast_ProbabilitiesInUnitInterval(t *testing.T) {
	pe, _ := newTestEngines(t)
	for _, ts := range triggerGrid() {
		f, err := pe.Forecast(ts)
		require.NoError(t, err)
		for _, e := range ProbabilityEnergies {
			if p := f.At(e).Probability; p != nil {
				assert.GreaterOrEqual(t, *p, 0.0, "%s %d MeV", f.Category, e)
				assert.LessOrEqual(t, *p, 1.0, "%s %d MeV", f.Category, e)
			}
		}
	}
}

// Between the not-SEP and SEP velocity means, a faster CME is more likely an SEP source.
func TestForecast_MonotoneInVelocity(t *testing.T) {
	tbl := defaultTable(t)
	pe := NewProbabilityEngine(tbl)

	for _, c := range Categories() {
		if c.Width != Halo && c.Width != PartialHalo {
			continue
		}
		t.Run(c.Key(), func(t *testing.T) {
			cat, ok := tbl.Category(c.Key())
			require.True(t, ok)
			pops := cat.Thresholds[10].Populations
			require.Len(t, pops, 2)
			lo := math.Pow(10, velocityMu(t, pops[1]))
			hi := math.Pow(10, velocityMu(t, pops[0]))
			require.Less(t, lo, hi)

			var ts TriggerSet
			if c.Combination == CombinationBoth {
				lon := 45.0
				if c.Connection == PoorlyConnected {
					lon = -30
				}
				ts.Flare = flare(lon, 5e-5)
			}
			width := 360.0
			if c.Width == PartialHalo {
				width = 200
			}

			prev := -1.0
			for i := 0; i <= 10; i++ {
				ts.CME = cme(width, lo+(hi-lo)*float64(i)/10)
				f, err := pe.Forecast(ts)
				require.NoError(t, err)
				p := f.At(10).Probability
				require.NotNil(t, p)
				assert.Greater(t, *p, prev, "velocity %g", ts.CME.Velocity)
				prev = *p
			}
		})
	}
}

func velocityMu(t *testing.T, p model.Population) float64 {
	t.Helper()
	for _, s := range p.Signals {
		if s.Signal == model.SignalVelocity {
			return s.Mu
		}
	}
	t.Fatalf("population %s has no velocity fit", p.Name)
	return 0
}

// The halo 10-300 MeV interference term evaluates a velocity fit on the flare
// magnitude. The density there is negligible, so the term drops out.
func TestForecast_HaloInterferenceTermReadsMagnitude(t *testing.T) {
	pe, _ := newTestEngines(t)
	m, v := 5e-5, 1300.0

	f, err := pe.Forecast(TriggerSet{Flare: flare(45, m), CME: cme(360, v)})
	require.NoError(t, err)

	sep := 0.12698413 * lognormalPDF(v, 3.1826479435, 0.17392908037) * lognormalPDF(m, -4.16030931293, 0.77491862688)
	notSep := 0.87301587 * lognormalPDF(v, 2.91011047363, 0.22652350366) * lognormalPDF(m, -5.47723640282, 0.40369972744)
	interference := 0.47619048 * lognormalPDF(m, 3.13173818588, 0.16359749436) * lognormalPDF(m, -4.23701745383, 0.48230103188)

	assert.Less(t, interference, 1e-300)
	p := f.At(300).Probability
	require.NotNil(t, p)
	assert.InDelta(t, sep/(sep+notSep+interference), *p, 1e-15)
	assert.InDelta(t, sep/(sep+notSep), *p, 1e-12)
}

func TestDefaultTableCoversEveryCategory(t *testing.T) {
	tbl := defaultTable(t)
	for _, c := range Categories() {
		_, ok := tbl.Category(c.Key())
		assert.True(t, ok, c.Key())
	}
}

// triggerGrid spans every category with a range of magnitudes and velocities.
func triggerGrid() []TriggerSet {
	var out []TriggerSet
	longitudes := []float64{-60, 19.99, 20, 75}
	magnitudes := []float64{5e-7, 1e-6, 2e-5, 5e-5, 1e-4, 4e-4, 2e-3}
	widths := []float64{45, 119.9, 120, 300, 360}
	velocities := []float64{150, 500, 1000, 1300, 1700, 2500, 3500}

	out = append(out, TriggerSet{})
	for _, lon := range longitudes {
		for _, m := range magnitudes {
			out = append(out, TriggerSet{Flare: flare(lon, m)})
			for _, w := range widths {
				for _, v := range velocities {
					out = append(out, TriggerSet{Flare: flare(lon, m), CME: cme(w, v)})
				}
			}
		}
	}
	for _, w := range widths {
		for _, v := range velocities {
			out = append(out, TriggerSet{CME: cme(w, v)})
		}
	}
	return out
}
