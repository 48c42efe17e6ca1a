package repository

import (
	"context"
	"time"

	"storefront-automation/internal/domain/model"
)

// StoreRepository is the port for stores and their automation profiles.
//
// The conditional-update methods (InsertWithinLimit, Claim, RecordSuccess,
// RecordFailure, ResetError) are the shared-state serialization points of
// the system: they must be atomic compare-and-set operations in the backing
// store, because in-process locks do not hold across service instances.
type StoreRepository interface {
	Save(ctx context.Context, qx Tx, s *model.Store) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Store, error)
	FindByRunID(ctx context.Context, qx Tx, runID string) (*model.Store, error)
	ListByAccount(ctx context.Context, qx Tx, accountID string) ([]*model.Store, error)
	CountByAccount(ctx context.Context, qx Tx, accountID string) (int, error)

	// InsertWithinLimit inserts the store only while the account's store
	// count stays below `limit`. Returns ErrQuotaExceeded when the guard
	// fails, closing the race between two concurrent creation requests.
	InsertWithinLimit(ctx context.Context, qx Tx, s *model.Store, limit int) error

	// MarkDue flips waiting -> due for every provisioned, non-frozen store
	// whose next run time has passed. Returns the number flipped.
	MarkDue(ctx context.Context, qx Tx, now time.Time) (int, error)

	// ListDue returns claimable stores: due, retrying with backoff elapsed,
	// or processing under a claim older than staleBefore (crash recovery).
	// Frozen and unprovisioned stores are excluded.
	ListDue(ctx context.Context, qx Tx, now, staleBefore time.Time, limit int) ([]*model.Store, error)

	// Claim transitions the store to processing iff it is currently due, or
	// retrying with backoff elapsed, or holds a claim older than
	// staleBefore. Exactly one concurrent caller wins; losers get
	// claimed=false.
	Claim(ctx context.Context, qx Tx, storeID, runID string, now, staleBefore time.Time) (claimed bool, err error)

	// RecordSuccess completes the run identified by runID: processing ->
	// waiting, both run timestamps updated, next run scheduled, attempts
	// reset. A stale runID (already superseded) is a no-op with ok=false.
	RecordSuccess(ctx context.Context, qx Tx, runID string, now, next time.Time) (ok bool, err error)

	// RecordFailure moves the run's store to `state` (retrying or error).
	// next is nil for terminal error.
	RecordFailure(ctx context.Context, qx Tx, runID string, now time.Time, next *time.Time, state model.AutomationState, attempts int) (ok bool, err error)

	// ResetError flips error -> waiting with a fresh schedule. Returns
	// ok=false when the store is not in error.
	ResetError(ctx context.Context, qx Tx, storeID string, next time.Time) (ok bool, err error)

	// ProvisionAutomation attaches an automation profile (state waiting,
	// first run due at `next`). Idempotent for an already-provisioned store.
	ProvisionAutomation(ctx context.Context, qx Tx, storeID string, intervalHours int, next time.Time) error

	SetDeletionRequested(ctx context.Context, qx Tx, storeID string, requested bool) error
	Delete(ctx context.Context, qx Tx, storeID string) error
}
