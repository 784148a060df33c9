package pipeline

import (
	"errors"
	"testing"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForecaster struct {
	calls int
	err   error
}

func (s *stubForecaster) Forecast(ts domain.TriggerSet) (domain.SEPForecast, error) {
	s.calls++
	if s.err != nil {
		return domain.SEPForecast{}, s.err
	}
	return domain.SEPForecast{Category: domain.Classify(ts)}, nil
}

func TestCachedForecaster_HitAndMiss(t *testing.T) {
	inner := &stubForecaster{}
	metrics := observability.NewMetricsForTesting()
	c := NewCachedForecaster(inner, 10, metrics)

	ts := domain.TriggerSet{CME: &domain.CME{Width: 360, Velocity: 1300}}
	first, err := c.Forecast(ts)
	require.NoError(t, err)

	// Identifiers do not take part in the key.
	ts.ID = "replayed"
	second, err := c.Forecast(ts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ForecastCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ForecastCache.WithLabelValues("miss")), 0)
}

func TestCachedForecaster_ErrorsNotCached(t *testing.T) {
	inner := &stubForecaster{err: domain.ErrInvalidTrigger}
	c := NewCachedForecaster(inner, 10, observability.NewMetricsForTesting())

	ts := domain.TriggerSet{CME: &domain.CME{Width: 90, Velocity: -1}}
	_, err := c.Forecast(ts)
	require.True(t, errors.Is(err, domain.ErrInvalidTrigger))
	_, err = c.Forecast(ts)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.cache.size())
}

func TestCacheKey(t *testing.T) {
	flareOnly := domain.TriggerSet{Flare: &domain.Flare{Longitude: 360, Magnitude: 1300}}
	cmeOnly := domain.TriggerSet{CME: &domain.CME{Width: 360, Velocity: 1300}}
	assert.NotEqual(t, cacheKey(flareOnly), cacheKey(cmeOnly))
	assert.Equal(t, "|", cacheKey(domain.TriggerSet{}))
	assert.Equal(t, "f:45,5e-05|c:360,1300", cacheKey(domain.TriggerSet{
		Flare: &domain.Flare{Longitude: 45, Magnitude: 5e-5, Class: "M5.0"},
		CME:   &domain.CME{Width: 360, Velocity: 1300},
	}))
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.SEPForecast{})
	c.put("b", domain.SEPForecast{})

	_, ok := c.get("a") // a becomes most recent
	require.True(t, ok)

	c.put("c", domain.SEPForecast{})
	assert.Equal(t, 2, c.size())

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.SEPForecast{})
	want := domain.SEPForecast{Category: domain.Category{Combination: domain.CombinationCMEOnly}}
	c.put("a", want)

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, c.size())
}
