package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// forecastRow is the flat Parquet schema of a forecast record.
type forecastRow struct {
	ID             string    `parquet:"id"`
	Category       string    `parquet:"category"`
	IssuedAt       time.Time `parquet:"issued_at,timestamp"`
	FlareLongitude *float64  `parquet:"flare_longitude"`
	FlareMagnitude *float64  `parquet:"flare_magnitude"`
	CMEWidth       *float64  `parquet:"cme_width"`
	CMEVelocity    *float64  `parquet:"cme_velocity"`

	Probability10  *float64 `parquet:"probability_10"`
	Probability30  *float64 `parquet:"probability_30"`
	Probability60  *float64 `parquet:"probability_60"`
	Probability100 *float64 `parquet:"probability_100"`
	Probability300 *float64 `parquet:"probability_300"`

	Flux50At10  *float64 `parquet:"flux50_10"`
	Flux90At10  *float64 `parquet:"flux90_10"`
	Flux50At30  *float64 `parquet:"flux50_30"`
	Flux90At30  *float64 `parquet:"flux90_30"`
	Flux50At100 *float64 `parquet:"flux50_100"`
	Flux90At100 *float64 `parquet:"flux90_100"`
	Flux50At300 *float64 `parquet:"flux50_300"`
	Flux90At300 *float64 `parquet:"flux90_300"`
}

func toRow(rec domain.ForecastRecord) forecastRow {
	row := forecastRow{
		ID:       rec.ID,
		Category: rec.Category,
		IssuedAt: rec.IssuedAt,

		Probability10:  rec.Forecast.At(10).Probability,
		Probability30:  rec.Forecast.At(30).Probability,
		Probability60:  rec.Forecast.At(60).Probability,
		Probability100: rec.Forecast.At(100).Probability,
		Probability300: rec.Forecast.At(300).Probability,

		Flux50At10:  rec.Characteristics.At(10).CL50,
		Flux90At10:  rec.Characteristics.At(10).CL90,
		Flux50At30:  rec.Characteristics.At(30).CL50,
		Flux90At30:  rec.Characteristics.At(30).CL90,
		Flux50At100: rec.Characteristics.At(100).CL50,
		Flux90At100: rec.Characteristics.At(100).CL90,
		Flux50At300: rec.Characteristics.At(300).CL50,
		Flux90At300: rec.Characteristics.At(300).CL90,
	}
	if f := rec.Trigger.Flare; f != nil {
		row.FlareLongitude, row.FlareMagnitude = &f.Longitude, &f.Magnitude
	}
	if c := rec.Trigger.CME; c != nil {
		row.CMEWidth, row.CMEVelocity = &c.Width, &c.Velocity
	}
	return row
}

func writeParquet(path string, records []domain.ForecastRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := make([]forecastRow, len(records))
	for i := range records {
		rows[i] = toRow(records[i])
	}

	w := parquet.NewGenericWriter[forecastRow](f)
	if _, err := w.Write(rows); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}
