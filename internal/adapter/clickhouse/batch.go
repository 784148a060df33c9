package clickhouse

import (
	"fmt"

	"github.com/ClickHouse/ch-go/proto"
	"github.com/couchcryptid/sep-forecast-service/internal/domain"
)

// forecastBatch holds one native column per archived field.
type forecastBatch struct {
	id       *proto.ColStr
	category *proto.ColStr
	issuedAt *proto.ColDateTime

	flareLongitude *proto.ColNullable[float64]
	flareMagnitude *proto.ColNullable[float64]
	cmeWidth       *proto.ColNullable[float64]
	cmeVelocity    *proto.ColNullable[float64]

	probability [len(domain.ProbabilityEnergies)]*proto.ColNullable[float64]
	flux50      [len(domain.FluxEnergies)]*proto.ColNullable[float64]
	flux90      [len(domain.FluxEnergies)]*proto.ColNullable[float64]
}

func nullableFloat() *proto.ColNullable[float64] {
	return proto.NewColNullable[float64](new(proto.ColFloat64))
}

func newForecastBatch() *forecastBatch {
	b := &forecastBatch{
		id:             new(proto.ColStr),
		category:       new(proto.ColStr),
		issuedAt:       new(proto.ColDateTime),
		flareLongitude: nullableFloat(),
		flareMagnitude: nullableFloat(),
		cmeWidth:       nullableFloat(),
		cmeVelocity:    nullableFloat(),
	}
	for i := range b.probability {
		b.probability[i] = nullableFloat()
	}
	for i := range b.flux50 {
		b.flux50[i] = nullableFloat()
		b.flux90[i] = nullableFloat()
	}
	return b
}

func (b *forecastBatch) len() int {
	return b.id.Rows()
}

func (b *forecastBatch) append(rec domain.ForecastRecord) {
	b.id.Append(rec.ID)
	b.category.Append(rec.Category)
	b.issuedAt.Append(rec.IssuedAt)

	if f := rec.Trigger.Flare; f != nil {
		b.flareLongitude.Append(proto.NewNullable(f.Longitude))
		b.flareMagnitude.Append(proto.NewNullable(f.Magnitude))
	} else {
		b.flareLongitude.Append(proto.Null[float64]())
		b.flareMagnitude.Append(proto.Null[float64]())
	}
	if c := rec.Trigger.CME; c != nil {
		b.cmeWidth.Append(proto.NewNullable(c.Width))
		b.cmeVelocity.Append(proto.NewNullable(c.Velocity))
	} else {
		b.cmeWidth.Append(proto.Null[float64]())
		b.cmeVelocity.Append(proto.Null[float64]())
	}

	for i := range rec.Forecast.Thresholds {
		b.probability[i].Append(nullable(rec.Forecast.Thresholds[i].Probability))
	}
	for i := range rec.Characteristics.Flux {
		b.flux50[i].Append(nullable(rec.Characteristics.Flux[i].CL50))
		b.flux90[i].Append(nullable(rec.Characteristics.Flux[i].CL90))
	}
}

func nullable(v *float64) proto.Nullable[float64] {
	if v == nil {
		return proto.Null[float64]()
	}
	return proto.NewNullable(*v)
}

// nullableColumns lists the Nullable(Float64) columns in insert order.
func nullableColumns() []string {
	names := []string{"flare_longitude", "flare_magnitude", "cme_width", "cme_velocity"}
	for _, e := range domain.ProbabilityEnergies {
		names = append(names, fmt.Sprintf("probability_%d", e))
	}
	for _, e := range domain.FluxEnergies {
		names = append(names, fmt.Sprintf("flux50_%d", e))
	}
	for _, e := range domain.FluxEnergies {
		names = append(names, fmt.Sprintf("flux90_%d", e))
	}
	return names
}

func (b *forecastBatch) input() proto.Input {
	in := proto.Input{
		{Name: "id", Data: b.id},
		{Name: "category", Data: b.category},
		{Name: "issued_at", Data: b.issuedAt},
	}
	cols := []*proto.ColNullable[float64]{b.flareLongitude, b.flareMagnitude, b.cmeWidth, b.cmeVelocity}
	cols = append(cols, b.probability[:]...)
	cols = append(cols, b.flux50[:]...)
	cols = append(cols, b.flux90[:]...)
	for i, name := range nullableColumns() {
		in = append(in, proto.InputColumn{Name: name, Data: cols[i]})
	}
	return in
}
