// Command forecast evaluates a file of trigger sets offline and writes the
// forecast records as JSON and, optionally, Parquet. It runs the same engines
// as the service.
//
// Usage:
//
//	go run ./cmd/forecast \
//	  -in data/triggers_2024.json.gz \
//	  -out data/forecasts_2024.json \
//	  -parquet data/forecasts_2024.parquet \
//	  -issued-at 2024-05-11T00:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/model"
	"github.com/jonboulle/clockwork"
)

type options struct {
	in       string
	out      string
	parquet  string
	model    string
	workers  int
	issuedAt string
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "trigger-set file (.json or .json.gz)")
	flag.StringVar(&opts.out, "out", "-", "JSON output path, - for stdout")
	flag.StringVar(&opts.parquet, "parquet", "", "optional Parquet output path")
	flag.StringVar(&opts.model, "model", "", "parameter table path (default: embedded)")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "forecast goroutines")
	flag.StringVar(&opts.issuedAt, "issued-at", "", "fixed RFC3339 issue time for reproducible output")
	flag.Parse()

	if opts.in == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.issuedAt != "" {
		at, err := time.Parse(time.RFC3339, opts.issuedAt)
		if err != nil {
			return fmt.Errorf("parse -issued-at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(at))
		defer domain.SetClock(nil)
	}

	table, err := model.Load(opts.model)
	if err != nil {
		return err
	}

	sets, err := readTriggerSets(opts.in)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.in, err)
	}
	log.Printf("read %d trigger sets from %s (model %s)", len(sets), opts.in, table.Version)

	records, err := evaluate(ctx, table, sets, opts.workers)
	if err != nil {
		return err
	}

	if err := writeJSON(opts.out, records); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	if opts.parquet != "" {
		if err := writeParquet(opts.parquet, records); err != nil {
			return fmt.Errorf("write %s: %w", opts.parquet, err)
		}
		log.Printf("wrote %d rows to %s", len(records), opts.parquet)
	}

	printStats(records)
	return nil
}

// evaluate forecasts and characterizes every trigger set.
func evaluate(ctx context.Context, table *model.Table, sets []domain.TriggerSet, workers int) ([]domain.ForecastRecord, error) {
	pe := domain.NewProbabilityEngine(table)
	ce := domain.NewCharacteristicsEngine(table)

	forecasts, err := domain.Forecasts(ctx, pe, sets, workers)
	if err != nil {
		return nil, err
	}
	chars, err := domain.Characterize(ctx, ce, sets, forecasts, workers)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ForecastRecord, len(sets))
	for i := range sets {
		records[i] = domain.NewForecastRecord(sets[i], forecasts[i], chars[i])
	}
	return records, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.ForecastRecord) {
	counts := map[string]int{}
	elevated := map[int]int{}
	for i := range records {
		counts[records[i].Category]++
		for _, e := range domain.FluxEnergies {
			if records[i].Characteristics.At(e).CL50 != nil {
				elevated[e]++
			}
		}
	}

	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	fmt.Fprintf(os.Stderr, "\n=== %d forecasts ===\n", len(records))
	for _, c := range cats {
		fmt.Fprintf(os.Stderr, "  %-36s %d\n", c, counts[c])
	}
	fmt.Fprintln(os.Stderr, "With peak-flux estimates:")
	for _, e := range domain.FluxEnergies {
		fmt.Fprintf(os.Stderr, "  >%d MeV: %d\n", e, elevated[e])
	}
}
