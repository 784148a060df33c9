package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
)

// ForecastTransformer implements Transformer with the probability and
// characteristics engines.
type ForecastTransformer struct {
	forecaster    domain.Forecaster
	characterizer domain.Characterizer
	workers       int
	logger        *slog.Logger
}

// NewTransformer creates a ForecastTransformer that evaluates each batch on up
// to workers goroutines.
func NewTransformer(fc domain.Forecaster, ch domain.Characterizer, workers int, logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{
		forecaster:    fc,
		characterizer: ch,
		workers:       workers,
		logger:        logger,
	}
}

func (t *ForecastTransformer) TransformBatch(ctx context.Context, batch []domain.RawEvent) []Result {
	results := make([]Result, len(batch))

	sets := make([]domain.TriggerSet, 0, len(batch))
	index := make([]int, 0, len(batch))
	for i, raw := range batch {
		ts, err := domain.ParseTriggerSet(raw)
		if err != nil {
			results[i].Err = err
			continue
		}
		sets = append(sets, ts)
		index = append(index, i)
	}
	if len(sets) == 0 {
		return results
	}

	forecasts, err := domain.Forecasts(ctx, t.forecaster, sets, t.workers)
	if err != nil {
		return failAll(results, index, err)
	}
	chars, err := domain.Characterize(ctx, t.characterizer, sets, forecasts, t.workers)
	if err != nil {
		return failAll(results, index, err)
	}

	for j, i := range index {
		rec := domain.NewForecastRecord(sets[j], forecasts[j], chars[j])
		out, err := domain.SerializeForecastRecord(rec)
		results[i] = Result{Event: out, Err: err}
		t.logger.Debug("forecast issued", "id", rec.ID, "category", rec.Category)
	}
	return results
}

func failAll(results []Result, index []int, err error) []Result {
	for _, i := range index {
		results[i].Err = err
	}
	return results
}
