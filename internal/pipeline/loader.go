package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
)

// TeeLoader publishes to a primary loader and mirrors successful batches to
// secondary sinks. Only a primary failure fails the batch; secondary failures
// are logged and the batch still commits.
type TeeLoader struct {
	primary     BatchLoader
	secondaries []BatchLoader
	logger      *slog.Logger
}

// NewTeeLoader creates a loader that fans out to secondaries after primary.
func NewTeeLoader(primary BatchLoader, logger *slog.Logger, secondaries ...BatchLoader) *TeeLoader {
	return &TeeLoader{primary: primary, secondaries: secondaries, logger: logger}
}

func (t *TeeLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if err := t.primary.LoadBatch(ctx, events); err != nil {
		return err
	}
	for _, s := range t.secondaries {
		if err := s.LoadBatch(ctx, events); err != nil {
			t.logger.Warn("secondary sink failed", "error", err, "batch_size", len(events))
		}
	}
	return nil
}
