package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeLoader(t *testing.T) {
	events := []domain.OutputEvent{{Key: []byte("a")}}

	t.Run("mirrors to secondaries", func(t *testing.T) {
		primary, archive := &mockLoader{}, &mockLoader{}
		tee := pipeline.NewTeeLoader(primary, slog.Default(), archive)

		require.NoError(t, tee.LoadBatch(context.Background(), events))
		assert.Len(t, primary.loaded, 1)
		assert.Len(t, archive.loaded, 1)
	})

	t.Run("primary failure skips secondaries", func(t *testing.T) {
		primary, archive := &mockLoader{err: errors.New("broker down")}, &mockLoader{}
		tee := pipeline.NewTeeLoader(primary, slog.Default(), archive)

		require.Error(t, tee.LoadBatch(context.Background(), events))
		assert.Empty(t, archive.loaded)
	})

	t.Run("secondary failure is not fatal", func(t *testing.T) {
		primary, archive := &mockLoader{}, &mockLoader{err: errors.New("clickhouse down")}
		tee := pipeline.NewTeeLoader(primary, slog.Default(), archive)

		require.NoError(t, tee.LoadBatch(context.Background(), events))
		assert.Len(t, primary.loaded, 1)
	})
}
