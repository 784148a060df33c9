package clickhouse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	queries []ch.Query
	err     error
	closed  bool
}

func (f *fakeConn) Do(_ context.Context, q ch.Query) error {
	f.queries = append(f.queries, q)
	return f.err
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func fp(v float64) *float64 { return &v }

func testRecord() domain.ForecastRecord {
	rec := domain.ForecastRecord{
		ID:       "cme_only-0011223344556677",
		Category: "cme_only/non_halo",
		IssuedAt: time.Date(2024, time.May, 10, 7, 0, 0, 0, time.UTC),
		Trigger: domain.TriggerSet{
			CME: &domain.CME{Width: 90, Velocity: 400},
		},
	}
	rec.Forecast.Thresholds[0].Probability = fp(0.003)
	rec.Characteristics.Flux[0] = domain.PeakFlux{CL50: fp(9.5), CL90: fp(44.7)}
	return rec
}

func column(t *testing.T, in proto.Input, name string) proto.ColInput {
	t.Helper()
	for _, col := range in {
		if col.Name == name {
			return col.Data
		}
	}
	t.Fatalf("column %q not found", name)
	return nil
}

func TestArchive_LoadBatch(t *testing.T) {
	conn := &fakeConn{}
	metrics := observability.NewMetricsForTesting()
	a := newArchive(conn, "sep.forecasts", metrics, slog.Default())

	rec := testRecord()
	events := []domain.OutputEvent{
		{Key: []byte(rec.ID), Record: &rec},
		{Key: []byte("no-record")},
	}
	require.NoError(t, a.LoadBatch(context.Background(), events))
	require.Len(t, conn.queries, 1)

	q := conn.queries[0]
	assert.True(t, strings.HasPrefix(q.Body, "INSERT INTO sep.forecasts (id, category, issued_at, flare_longitude,"))
	assert.True(t, strings.HasSuffix(q.Body, "flux90_300) VALUES"))
	assert.Len(t, q.Input, 3+4+5+4+4)

	assert.Equal(t, 1, column(t, q.Input, "id").Rows())
	assert.Equal(t, rec.ID, column(t, q.Input, "id").(*proto.ColStr).Row(0))
	assert.Equal(t, "cme_only/non_halo", column(t, q.Input, "category").(*proto.ColStr).Row(0))

	flareLon := column(t, q.Input, "flare_longitude").(*proto.ColNullable[float64]).Row(0)
	assert.False(t, flareLon.Set)
	width := column(t, q.Input, "cme_width").(*proto.ColNullable[float64]).Row(0)
	assert.True(t, width.Set)
	assert.Equal(t, 90.0, width.Value)

	p10 := column(t, q.Input, "probability_10").(*proto.ColNullable[float64]).Row(0)
	assert.Equal(t, proto.NewNullable(0.003), p10)
	p300 := column(t, q.Input, "probability_300").(*proto.ColNullable[float64]).Row(0)
	assert.False(t, p300.Set)
	f90 := column(t, q.Input, "flux90_10").(*proto.ColNullable[float64]).Row(0)
	assert.Equal(t, proto.NewNullable(44.7), f90)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ArchiveWrites.WithLabelValues("success")), 0)
}

func TestArchive_LoadBatch_NothingToWrite(t *testing.T) {
	conn := &fakeConn{}
	a := newArchive(conn, "sep.forecasts", observability.NewMetricsForTesting(), slog.Default())

	require.NoError(t, a.LoadBatch(context.Background(), nil))
	require.NoError(t, a.LoadBatch(context.Background(), []domain.OutputEvent{{Key: []byte("x")}}))
	assert.Empty(t, conn.queries)
}

func TestArchive_LoadBatch_Error(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection reset")}
	metrics := observability.NewMetricsForTesting()
	a := newArchive(conn, "sep.forecasts", metrics, slog.Default())

	rec := testRecord()
	err := a.LoadBatch(context.Background(), []domain.OutputEvent{{Record: &rec}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert into sep.forecasts")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ArchiveWrites.WithLabelValues("error")), 0)
}

func TestArchive_EnsureTable(t *testing.T) {
	conn := &fakeConn{}
	a := newArchive(conn, "sep.forecasts", observability.NewMetricsForTesting(), slog.Default())

	require.NoError(t, a.EnsureTable(context.Background()))
	require.Len(t, conn.queries, 1)
	body := conn.queries[0].Body
	assert.Contains(t, body, "CREATE TABLE IF NOT EXISTS sep.forecasts")
	assert.Contains(t, body, "probability_60 Nullable(Float64)")
	assert.Contains(t, body, "flux50_300 Nullable(Float64)")
	assert.NotContains(t, body, ",\n)")

	require.NoError(t, a.Close())
	assert.True(t, conn.closed)
}
