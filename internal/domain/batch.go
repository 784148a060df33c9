package domain

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Forecaster produces the probability forecast of one trigger set.
type Forecaster interface {
	Forecast(ts TriggerSet) (SEPForecast, error)
}

// Characterizer produces the peak-flux estimates of one forecast trigger set.
type Characterizer interface {
	Characteristics(ts TriggerSet, f SEPForecast) SEPCharacteristics
}

// Forecasts evaluates every trigger set on at most workers goroutines. The
// result is index-aligned with sets. The first invalid trigger set fails the batch.
func Forecasts(ctx context.Context, fc Forecaster, sets []TriggerSet, workers int) ([]SEPForecast, error) {
	out := make([]SEPForecast, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := fc.Forecast(sets[i])
			if err != nil {
				return fmt.Errorf("trigger set %d: %w", i, err)
			}
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Characterize estimates peak fluxes for index-aligned trigger sets and forecasts.
func Characterize(ctx context.Context, ch Characterizer, sets []TriggerSet, forecasts []SEPForecast, workers int) ([]SEPCharacteristics, error) {
	if len(sets) != len(forecasts) {
		return nil, fmt.Errorf("%w: %d trigger sets, %d forecasts", ErrLengthMismatch, len(sets), len(forecasts))
	}

	out := make([]SEPCharacteristics, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = ch.Characteristics(sets[i], forecasts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
