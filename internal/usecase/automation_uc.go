package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// AutomationUseCase owns the per-store automation state machine. All
// transitions funnel through the operations below; the UI and sweep are
// read-only consumers of the persisted state.
//
// Exclusivity is enforced at the shared-state layer: ClaimForProcessing is a
// conditional update in the repository, so exactly one of N concurrent
// claimants wins even across service instances.
type AutomationUseCase struct {
	stores repository.StoreRepository
	log    *zerolog.Logger
	now    func() time.Time // test seam
}

func NewAutomationUseCase(stores repository.StoreRepository, logger *zerolog.Logger) *AutomationUseCase {
	aLog := logger.With().Str("component", "AutomationUseCase").Logger()
	return &AutomationUseCase{stores: stores, log: &aLog, now: time.Now}
}

// ComputeNextDue derives the store's next run time. Nil when automation is
// not provisioned.
func (uc *AutomationUseCase) ComputeNextDue(store *model.Store) *time.Time {
	if store == nil {
		return nil
	}
	return store.Automation.NextDue()
}

// MarkDue flips waiting -> due for every store whose next run time has
// passed. Returns the number of stores flipped.
func (uc *AutomationUseCase) MarkDue(ctx context.Context) (int, error) {
	n, err := uc.stores.MarkDue(ctx, repository.NoTX, uc.now())
	if err != nil {
		return 0, fmt.Errorf("mark due: %w", err)
	}
	return n, nil
}

// ListDue returns stores ready to be claimed, including stores whose
// processing claim went stale (the worker died mid-run).
func (uc *AutomationUseCase) ListDue(ctx context.Context, limit int) ([]*model.Store, error) {
	now := uc.now()
	return uc.stores.ListDue(ctx, repository.NoTX, now, now.Add(-model.ClaimStaleAfter), limit)
}

// ClaimForProcessing exclusively claims the store for one run attempt and
// returns the run id. Losing a race (or claiming a store that is not due)
// yields ErrClaimConflict: the caller should skip this cycle, not retry
// immediately.
func (uc *AutomationUseCase) ClaimForProcessing(ctx context.Context, storeID string) (string, error) {
	now := uc.now()
	runID := ulid.Make().String()
	claimed, err := uc.stores.Claim(ctx, repository.NoTX, storeID, runID, now, now.Add(-model.ClaimStaleAfter))
	if err != nil {
		return "", fmt.Errorf("claim store %s: %w", storeID, err)
	}
	if !claimed {
		return "", domain.ErrClaimConflict
	}
	uc.log.Debug().Str("store_id", storeID).Str("run_id", runID).Msg("store claimed for processing")
	return runID, nil
}

// StoreByRun resolves the store currently holding runID.
func (uc *AutomationUseCase) StoreByRun(ctx context.Context, runID string) (*model.Store, error) {
	return uc.stores.FindByRunID(ctx, repository.NoTX, runID)
}

// RecordSuccess completes the store's current run: processing -> waiting,
// both run timestamps set to now, next run scheduled now + interval.
func (uc *AutomationUseCase) RecordSuccess(ctx context.Context, storeID string) error {
	store, err := uc.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return err
	}
	return uc.recordSuccess(ctx, store)
}

// RecordSuccessByRun is the callback-facing variant: a stale run id (the
// claim was abandoned and superseded) is a silent no-op, so late callbacks
// never clobber a newer cycle.
func (uc *AutomationUseCase) RecordSuccessByRun(ctx context.Context, runID string) error {
	store, err := uc.stores.FindByRunID(ctx, repository.NoTX, runID)
	if err != nil {
		if err == domain.ErrNotFound {
			uc.log.Warn().Str("run_id", runID).Msg("success callback for unknown or superseded run")
			return nil
		}
		return err
	}
	return uc.recordSuccess(ctx, store)
}

func (uc *AutomationUseCase) recordSuccess(ctx context.Context, store *model.Store) error {
	if !store.Automation.Provisioned() {
		return domain.ErrNotProvisioned
	}
	now := uc.now()
	next := now.Add(store.Automation.Interval())
	ok, err := uc.stores.RecordSuccess(ctx, repository.NoTX, store.Automation.CurrentRunID, now, next)
	if err != nil {
		return fmt.Errorf("record success store %s: %w", store.ID, err)
	}
	if !ok {
		// Not processing anymore: the claim went stale and another cycle took over.
		uc.log.Warn().Str("store_id", store.ID).Msg("success ignored, run superseded")
		return nil
	}
	uc.log.Info().Str("store_id", store.ID).Time("next_run", next).Msg("automation run succeeded")
	return nil
}

// RecordFailure handles a failed run attempt. Recoverable failures are
// retried with doubling backoff until the attempt budget is spent; then (and
// on any non-recoverable failure) the store lands in the terminal `error`
// state, which is sticky until ResetError is called.
func (uc *AutomationUseCase) RecordFailure(ctx context.Context, storeID string, recoverable bool) error {
	store, err := uc.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return err
	}
	return uc.recordFailure(ctx, store, recoverable)
}

// RecordFailureByRun mirrors RecordSuccessByRun for executor callbacks.
func (uc *AutomationUseCase) RecordFailureByRun(ctx context.Context, runID string, recoverable bool) error {
	store, err := uc.stores.FindByRunID(ctx, repository.NoTX, runID)
	if err != nil {
		if err == domain.ErrNotFound {
			uc.log.Warn().Str("run_id", runID).Msg("failure callback for unknown or superseded run")
			return nil
		}
		return err
	}
	return uc.recordFailure(ctx, store, recoverable)
}

func (uc *AutomationUseCase) recordFailure(ctx context.Context, store *model.Store, recoverable bool) error {
	if !store.Automation.Provisioned() {
		return domain.ErrNotProvisioned
	}
	now := uc.now()
	attempts := store.Automation.Attempts + 1

	if !recoverable || attempts >= model.MaxRunAttempts {
		ok, err := uc.stores.RecordFailure(ctx, repository.NoTX, store.Automation.CurrentRunID, now, nil, model.AutomationStateError, attempts)
		if err != nil {
			return fmt.Errorf("record terminal failure store %s: %w", store.ID, err)
		}
		if ok {
			uc.log.Error().Str("store_id", store.ID).Int("attempts", attempts).Bool("recoverable", recoverable).
				Msg("automation entered error state, manual reset required")
		}
		return nil
	}

	next := now.Add(model.RetryDelay(attempts))
	ok, err := uc.stores.RecordFailure(ctx, repository.NoTX, store.Automation.CurrentRunID, now, &next, model.AutomationStateRetrying, attempts)
	if err != nil {
		return fmt.Errorf("record failure store %s: %w", store.ID, err)
	}
	if ok {
		uc.log.Warn().Str("store_id", store.ID).Int("attempt", attempts).Time("retry_at", next).
			Msg("automation run failed, retry scheduled")
	}
	return nil
}

// CurrentState returns the store's automation state, or ErrNotProvisioned.
func (uc *AutomationUseCase) CurrentState(ctx context.Context, storeID string) (model.AutomationState, error) {
	store, err := uc.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return "", err
	}
	if !store.Automation.Provisioned() {
		return "", domain.ErrNotProvisioned
	}
	return store.Automation.State, nil
}

// ResetError clears the terminal error state: error -> waiting with the next
// run due one interval from now. Rejected for stores in any other state.
func (uc *AutomationUseCase) ResetError(ctx context.Context, storeID string) error {
	store, err := uc.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return err
	}
	if !store.Automation.Provisioned() {
		return domain.ErrNotProvisioned
	}
	next := uc.now().Add(store.Automation.Interval())
	ok, err := uc.stores.ResetError(ctx, repository.NoTX, storeID, next)
	if err != nil {
		return fmt.Errorf("reset store %s: %w", storeID, err)
	}
	if !ok {
		return fmt.Errorf("%w: store %s is not in error state", domain.ErrInvalidArgument, storeID)
	}
	uc.log.Info().Str("store_id", storeID).Time("next_run", next).Msg("automation error reset")
	return nil
}

// Provision attaches an automation profile to the store with the first run
// due immediately. Called once a paid plan is attached.
func (uc *AutomationUseCase) Provision(ctx context.Context, storeID string, intervalHours int) error {
	if intervalHours <= 0 {
		return fmt.Errorf("%w: interval hours must be positive", domain.ErrInvalidArgument)
	}
	return uc.stores.ProvisionAutomation(ctx, repository.NoTX, storeID, intervalHours, uc.now())
}
