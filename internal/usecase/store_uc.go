package usecase

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// QuotaExceededError carries the quota snapshot that denied creation so the
// API can render upgrade options without a second round trip.
type QuotaExceededError struct {
	Quota *model.Quota
}

func (e *QuotaExceededError) Error() string { return domain.ErrQuotaExceeded.Error() }
func (e *QuotaExceededError) Unwrap() error { return domain.ErrQuotaExceeded }

// StoreUseCase implements store creation and deletion, including the
// lifecycle guard. Creation re-resolves quota inside the insert transaction
// and relies on the count-guarded insert as the final backstop against a
// double-insert race.
type StoreUseCase struct {
	stores  repository.StoreRepository
	subs    repository.SubscriptionRepository
	credits repository.CreditRepository
	quota   *QuotaUseCase
	pool    *pgxpool.Pool
	log     *zerolog.Logger
}

// NewStoreUseCase constructs the usecase. Callers can provide a pool as the
// last argument; without one (tests, in-memory repos) the non-transactional
// path is used.
func NewStoreUseCase(
	stores repository.StoreRepository,
	subs repository.SubscriptionRepository,
	credits repository.CreditRepository,
	quota *QuotaUseCase,
	logger *zerolog.Logger,
	poolOpt ...*pgxpool.Pool,
) *StoreUseCase {
	var p *pgxpool.Pool
	if len(poolOpt) > 0 {
		p = poolOpt[0]
	}
	sLog := logger.With().Str("component", "StoreUseCase").Logger()
	return &StoreUseCase{stores: stores, subs: subs, credits: credits, quota: quota, pool: p, log: &sLog}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// Create makes a new store for the account if quota allows. Beyond the
// plan's included count, one purchased extra-store credit is consumed and
// pinned to the new store.
func (uc *StoreUseCase) Create(ctx context.Context, accountID, name, category, phone string) (*model.Store, error) {
	store, err := model.NewStore(uuid.NewString(), accountID, name, category, phone)
	if err != nil {
		return nil, err
	}

	if uc.pool == nil {
		if err := uc.createWithin(ctx, repository.NoTX, store); err != nil {
			return nil, err
		}
		uc.quota.Invalidate(ctx, accountID)
		return store, nil
	}

	conn, err := uc.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serialize per account so two near-simultaneous creations cannot both
	// observe the same free slot.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(accountID)); err != nil {
		return nil, err
	}
	if err := uc.createWithin(ctx, tx, store); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	uc.quota.Invalidate(ctx, accountID)
	uc.log.Info().Str("store_id", store.ID).Str("account_id", accountID).Msg("store created")
	return store, nil
}

func (uc *StoreUseCase) createWithin(ctx context.Context, qx repository.Tx, store *model.Store) error {
	q := uc.quota.ResolveWithin(ctx, qx, store.AccountID)
	if !q.HasActiveSubscription {
		return domain.ErrSubscriptionRequired
	}
	if !q.CanCreateStore {
		return &QuotaExceededError{Quota: q}
	}
	if err := uc.stores.InsertWithinLimit(ctx, qx, store, q.Ceiling()); err != nil {
		if err == domain.ErrQuotaExceeded {
			return &QuotaExceededError{Quota: q}
		}
		return fmt.Errorf("insert store: %w", err)
	}
	// Beyond the included count the new store occupies a purchased slot.
	if q.TotalStores >= q.IncludedStoreLimit {
		assigned, err := uc.credits.AssignNextAvailable(ctx, qx, store.AccountID, store.ID)
		if err != nil {
			return fmt.Errorf("assign credit: %w", err)
		}
		if !assigned {
			// The pool drained between resolve and assign; fail the creation.
			return &QuotaExceededError{Quota: q}
		}
	}
	return nil
}

// Get loads one store by id.
func (uc *StoreUseCase) Get(ctx context.Context, storeID string) (*model.Store, error) {
	return uc.stores.FindByID(ctx, repository.NoTX, storeID)
}

// GuardDelete reports whether the store may be deleted and why not.
func (uc *StoreUseCase) GuardDelete(ctx context.Context, storeID string) (GuardDecision, error) {
	return uc.guardWithin(ctx, repository.NoTX, storeID)
}

func (uc *StoreUseCase) guardWithin(ctx context.Context, qx repository.Tx, storeID string) (GuardDecision, error) {
	store, err := uc.stores.FindByID(ctx, qx, storeID)
	if err != nil {
		return GuardDecision{}, err
	}
	sub, err := uc.subs.FindActiveByStore(ctx, qx, storeID)
	if err != nil && err != domain.ErrNotFound {
		return GuardDecision{}, err
	}
	return evaluateGuard(store, sub), nil
}

// Delete removes a store after the guard approves. The guard is re-checked
// inside the transaction immediately before the destructive write, and any
// assigned extra-store credit is released atomically with the delete.
func (uc *StoreUseCase) Delete(ctx context.Context, storeID string) error {
	store, err := uc.stores.FindByID(ctx, repository.NoTX, storeID)
	if err != nil {
		return err
	}
	decision, err := uc.GuardDelete(ctx, storeID)
	if err != nil {
		return err
	}
	if !decision.CanDelete {
		return &domain.DeletionBlockedError{Reason: decision.Reason}
	}

	// Freeze the store so the sweep stops claiming it between the guard
	// check and the delete.
	if err := uc.stores.SetDeletionRequested(ctx, repository.NoTX, storeID, true); err != nil {
		return err
	}
	if err := uc.deleteFrozen(ctx, store); err != nil {
		// The freeze must never outlive the attempt that set it.
		_ = uc.stores.SetDeletionRequested(ctx, repository.NoTX, storeID, false)
		return err
	}
	uc.quota.Invalidate(ctx, store.AccountID)
	uc.log.Info().Str("store_id", storeID).Msg("store deleted")
	return nil
}

func (uc *StoreUseCase) deleteFrozen(ctx context.Context, store *model.Store) error {
	deleteWithin := func(ctx context.Context, qx repository.Tx) error {
		decision, err := uc.guardWithin(ctx, qx, store.ID)
		if err != nil {
			return err
		}
		if !decision.CanDelete {
			return &domain.DeletionBlockedError{Reason: decision.Reason}
		}
		if err := uc.credits.Release(ctx, qx, store.ID); err != nil {
			return fmt.Errorf("release credit: %w", err)
		}
		if err := uc.stores.Delete(ctx, qx, store.ID); err != nil {
			return fmt.Errorf("delete store: %w", err)
		}
		return nil
	}

	if uc.pool == nil {
		return deleteWithin(ctx, repository.NoTX)
	}

	conn, err := uc.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(store.AccountID)); err != nil {
		return err
	}
	if err := deleteWithin(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Overview builds the dashboard rows for all of the account's stores.
func (uc *StoreUseCase) Overview(ctx context.Context, accountID string) ([]*model.StoreOverview, error) {
	stores, err := uc.stores.ListByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	rows := make([]*model.StoreOverview, 0, len(stores))
	for _, st := range stores {
		sub, err := uc.subs.FindActiveByStore(ctx, repository.NoTX, st.ID)
		if err != nil && err != domain.ErrNotFound {
			return nil, err
		}
		decision := evaluateGuard(st, sub)

		row := &model.StoreOverview{
			ID:                  st.ID,
			StoreName:           st.Name,
			Category:            st.Category,
			Status:              st.Status,
			PriceCents:          st.PriceCents,
			OrderCount:          st.OrderCount,
			CanDelete:           decision.CanDelete,
			DeleteBlockedReason: decision.Reason,
		}
		if sub != nil {
			row.HasActiveSubscription = sub.Status.CountsAsActive()
			row.Plan = sub.PlanID
			row.SubscriptionStatus = string(sub.Status)
		}
		if p := st.Automation; p.Provisioned() {
			state := p.State
			row.AutomationIntervalHours = p.IntervalHours
			row.AutomationLastRunAt = p.LastRunAt
			row.LastSuccessfulAutomation = p.LastSuccessAt
			row.NextAutomationAt = p.NextDue()
			row.AutomationState = &state
		}
		rows = append(rows, row)
	}
	return rows, nil
}
