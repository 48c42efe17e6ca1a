package executor

import (
	"context"

	"github.com/rs/zerolog"

	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/adapter"
)

var _ adapter.ListingExecutor = (*NoopExecutor)(nil)

// NoopExecutor completes every run instantly. Used when the real listing
// uploader reports outcomes through the run callback endpoints instead of
// running in-process.
type NoopExecutor struct {
	log *zerolog.Logger
}

func NewNoopExecutor(logger *zerolog.Logger) *NoopExecutor {
	eLog := logger.With().Str("component", "NoopExecutor").Logger()
	return &NoopExecutor{log: &eLog}
}

func (e *NoopExecutor) Name() string { return "noop" }

func (e *NoopExecutor) Run(ctx context.Context, store *model.Store, runID string) error {
	e.log.Debug().Str("store_id", store.ID).Str("run_id", runID).Msg("noop run complete")
	return nil
}
