package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storefront-automation/internal/infra/metrics"
	"storefront-automation/internal/infra/redis"
	"storefront-automation/internal/usecase"
)

const reconcileLockKey = "lock:checkout_reconcile"

// CheckoutReconciler re-verifies payments stuck in pending. Covers lost
// provider callbacks and crashes between verification and grant.
type CheckoutReconciler struct {
	interval   time.Duration
	pendingAge time.Duration
	batchSize  int
	checkout   *usecase.CheckoutUseCase
	locker     redis.Locker
	log        *zerolog.Logger
}

func NewCheckoutReconciler(
	interval, pendingAge time.Duration,
	batchSize int,
	checkout *usecase.CheckoutUseCase,
	locker redis.Locker,
	logger *zerolog.Logger,
) *CheckoutReconciler {
	rLog := logger.With().Str("component", "CheckoutReconciler").Logger()
	if pendingAge <= 0 {
		pendingAge = 15 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &CheckoutReconciler{
		interval:   interval,
		pendingAge: pendingAge,
		batchSize:  batchSize,
		checkout:   checkout,
		locker:     locker,
		log:        &rLog,
	}
}

func (w *CheckoutReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting checkout reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping checkout reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *CheckoutReconciler) reconcile(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, reconcileLockKey, 2*w.interval)
	if err != nil {
		if !errors.Is(err, redis.ErrLockHeld) {
			w.log.Warn().Err(err).Msg("reconcile lock failed")
		}
		return
	}
	defer func() { _ = w.locker.Unlock(ctx, reconcileLockKey, token) }()

	cutoff := time.Now().Add(-w.pendingAge)
	n, err := w.checkout.ReconcilePending(ctx, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile cycle failed")
		return
	}
	if n > 0 {
		metrics.AddPaymentsReconciled(n)
		w.log.Info().Int("count", n).Msg("pending payments reconciled")
	}
}
