// Package clickhouse archives issued forecasts to a ClickHouse table over the
// native protocol.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/couchcryptid/sep-forecast-service/internal/config"
	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
)

// querier is the subset of *ch.Client the archive needs.
type querier interface {
	Do(ctx context.Context, q ch.Query) error
	Close() error
}

// Archive writes forecast records to ClickHouse. It implements
// pipeline.BatchLoader.
type Archive struct {
	conn    querier
	table   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Dial connects to the configured ClickHouse server with LZ4 compression.
func Dial(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Archive, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     cfg.ClickHouseAddr,
		Database:    cfg.ClickHouseDatabase,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse dial %s: %w", cfg.ClickHouseAddr, err)
	}
	table := fmt.Sprintf("%s.%s", cfg.ClickHouseDatabase, cfg.ClickHouseTable)
	return newArchive(conn, table, metrics, logger), nil
}

func newArchive(conn querier, table string, metrics *observability.Metrics, logger *slog.Logger) *Archive {
	return &Archive{conn: conn, table: table, metrics: metrics, logger: logger}
}

// EnsureTable creates the archive table if it does not exist.
func (a *Archive) EnsureTable(ctx context.Context) error {
	if err := a.conn.Do(ctx, ch.Query{Body: createTableSQL(a.table)}); err != nil {
		return fmt.Errorf("create table %s: %w", a.table, err)
	}
	return nil
}

// LoadBatch inserts one row per forecast. Events without a record are skipped.
func (a *Archive) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	batch := newForecastBatch()
	for _, ev := range events {
		if ev.Record != nil {
			batch.append(*ev.Record)
		}
	}
	if batch.len() == 0 {
		return nil
	}

	in := batch.input()
	start := time.Now()
	err := a.conn.Do(ctx, ch.Query{
		Body:  insertSQL(a.table, in),
		Input: in,
	})
	a.metrics.ArchiveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.ArchiveWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("insert into %s: %w", a.table, err)
	}
	a.metrics.ArchiveWrites.WithLabelValues("success").Inc()
	a.logger.Debug("forecasts archived", "rows", batch.len(), "table", a.table)
	return nil
}

func (a *Archive) Close() error {
	return a.conn.Close()
}

func insertSQL(table string, in proto.Input) string {
	names := make([]string, len(in))
	for i, col := range in {
		names[i] = col.Name
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES", table, strings.Join(names, ", "))
}

func createTableSQL(table string) string {
	cols := []string{"id String", "category LowCardinality(String)", "issued_at DateTime"}
	for _, name := range nullableColumns() {
		cols = append(cols, name+" Nullable(Float64)")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n) ENGINE = ReplacingMergeTree\nORDER BY (category, id)",
		table, strings.Join(cols, ",\n    "))
}
