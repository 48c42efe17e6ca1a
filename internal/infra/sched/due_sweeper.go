package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/adapter"
	"storefront-automation/internal/infra/metrics"
	"storefront-automation/internal/infra/redis"
	"storefront-automation/internal/infra/worker"
	"storefront-automation/internal/usecase"
)

const sweepLockKey = "lock:automation_sweep"

// DueSweeper drives the automation cycle: each tick it flips overdue stores
// to due, claims them one by one, and hands each claimed run to the worker
// pool. A Redis lock keeps the sweep single-flight across instances; the
// per-store claim in the database stays the real exclusivity guarantee, the
// lock only avoids wasted work.
type DueSweeper struct {
	interval  time.Duration
	batchSize int
	auto      *usecase.AutomationUseCase
	executor  adapter.ListingExecutor
	pool      *worker.Pool
	locker    redis.Locker
	log       *zerolog.Logger
}

func NewDueSweeper(
	interval time.Duration,
	batchSize int,
	auto *usecase.AutomationUseCase,
	executor adapter.ListingExecutor,
	pool *worker.Pool,
	locker redis.Locker,
	logger *zerolog.Logger,
) *DueSweeper {
	swLog := logger.With().Str("component", "DueSweeper").Logger()
	return &DueSweeper{
		interval:  interval,
		batchSize: batchSize,
		auto:      auto,
		executor:  executor,
		pool:      pool,
		locker:    locker,
		log:       &swLog,
	}
}

func (w *DueSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting due sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping due sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DueSweeper) sweep(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, sweepLockKey, 2*w.interval)
	if err != nil {
		if !errors.Is(err, redis.ErrLockHeld) {
			w.log.Warn().Err(err).Msg("sweep lock failed")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, sweepLockKey, token) }()

	started := time.Now()
	due, err := w.auto.MarkDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("mark due failed")
		return
	}

	stores, err := w.auto.ListDue(ctx, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list due failed")
		return
	}
	for _, store := range stores {
		w.dispatch(store)
	}

	metrics.ObserveSweep(float64(time.Since(started).Milliseconds()), due)
	if due > 0 || len(stores) > 0 {
		w.log.Info().Int("marked_due", due).Int("dispatched", len(stores)).Msg("sweep cycle complete")
	}
}

func (w *DueSweeper) dispatch(store *model.Store) {
	storeID := store.ID
	err := w.pool.Submit(func(ctx context.Context) error {
		return w.process(ctx, storeID)
	})
	if err != nil {
		// Dropped runs stay due and are re-dispatched next sweep.
		w.log.Warn().Err(err).Str("store_id", storeID).Msg("dispatch skipped")
	}
}

// process runs one claim-execute-record cycle for a single store.
func (w *DueSweeper) process(ctx context.Context, storeID string) error {
	runID, err := w.auto.ClaimForProcessing(ctx, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrClaimConflict) {
			metrics.IncClaimConflict()
			return nil
		}
		return err
	}

	store, err := w.auto.StoreByRun(ctx, runID)
	if err != nil {
		return err
	}

	runErr := w.executor.Run(ctx, store, runID)
	if runErr == nil {
		metrics.IncAutomationRun("succeeded")
		return w.auto.RecordSuccessByRun(ctx, runID)
	}

	recoverable := adapter.IsRecoverable(runErr)
	if recoverable {
		metrics.IncAutomationRun("retrying")
	} else {
		metrics.IncAutomationRun("error")
	}
	w.log.Warn().Err(runErr).Str("store_id", storeID).Str("run_id", runID).Bool("recoverable", recoverable).
		Msg("automation run failed")
	return w.auto.RecordFailureByRun(ctx, runID, recoverable)
}
