package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// QuotaCache is a short-lived, invalidate-on-write view of resolved quotas.
// The persistence layer stays the source of truth; a miss or error just
// means a fresh resolve.
type QuotaCache interface {
	Get(ctx context.Context, accountID string) (*model.Quota, bool)
	Set(ctx context.Context, accountID string, q *model.Quota)
	Invalidate(ctx context.Context, accountID string)
}

// QuotaUseCase answers "can this account create one more store, and if not,
// why, and what can it do about it?". Pure read; creation re-resolves inside
// its own transaction.
type QuotaUseCase struct {
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	stores   repository.StoreRepository
	credits  repository.CreditRepository
	catalog  *CatalogUseCase
	cache    QuotaCache // optional
	log      *zerolog.Logger
}

func NewQuotaUseCase(
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	stores repository.StoreRepository,
	credits repository.CreditRepository,
	catalog *CatalogUseCase,
	cache QuotaCache,
	logger *zerolog.Logger,
) *QuotaUseCase {
	qLog := logger.With().Str("component", "QuotaUseCase").Logger()
	return &QuotaUseCase{
		accounts: accounts,
		subs:     subs,
		stores:   stores,
		credits:  credits,
		catalog:  catalog,
		cache:    cache,
		log:      &qLog,
	}
}

// Resolve computes the account's quota snapshot. It fails only on
// account-not-found; any upstream read failure yields a conservative
// CanCreateStore=false (fail closed rather than open).
func (uc *QuotaUseCase) Resolve(ctx context.Context, accountID string) (*model.Quota, error) {
	if accountID == "" {
		return nil, domain.ErrInvalidArgument
	}
	exists, err := uc.accounts.Exists(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	if uc.cache != nil {
		if q, ok := uc.cache.Get(ctx, accountID); ok {
			return q, nil
		}
	}

	q := uc.ResolveWithin(ctx, repository.NoTX, accountID)
	if uc.cache != nil {
		uc.cache.Set(ctx, accountID, q)
	}
	return q, nil
}

// ResolveWithin computes the quota using the given transaction handle. The
// creation path calls this inside the insert transaction so a client-cached
// quota is never trusted.
func (uc *QuotaUseCase) ResolveWithin(ctx context.Context, qx repository.Tx, accountID string) *model.Quota {
	q := &model.Quota{}

	sub, err := uc.subs.FindActiveByAccount(ctx, qx, accountID)
	if err != nil && err != domain.ErrNotFound {
		uc.log.Error().Err(err).Msg("subscription read failed; quota fails closed")
		return q
	}

	var plan *model.Plan
	if sub != nil {
		plan, err = uc.catalog.Lookup(ctx, sub.PlanID)
		if err != nil {
			uc.log.Error().Err(err).Str("plan", string(sub.PlanID)).Msg("plan lookup failed; quota fails closed")
			return q
		}
		q.HasActiveSubscription = true
		q.Plan = plan.ID
		q.IncludedStoreLimit = plan.IncludedStores
		q.ExtraStorePriceCents = plan.ExtraStorePriceCents
	}

	total, err := uc.stores.CountByAccount(ctx, qx, accountID)
	if err != nil {
		uc.log.Error().Err(err).Msg("store count failed; quota fails closed")
		return &model.Quota{Plan: q.Plan, HasActiveSubscription: q.HasActiveSubscription}
	}
	q.TotalStores = total

	purchased, err := uc.credits.CountByAccount(ctx, qx, accountID)
	if err != nil {
		uc.log.Error().Err(err).Msg("credit count failed; quota fails closed")
		return &model.Quota{Plan: q.Plan, HasActiveSubscription: q.HasActiveSubscription, TotalStores: total}
	}
	used, err := uc.credits.CountAssigned(ctx, qx, accountID)
	if err != nil {
		uc.log.Error().Err(err).Msg("assigned-credit count failed; quota fails closed")
		return &model.Quota{Plan: q.Plan, HasActiveSubscription: q.HasActiveSubscription, TotalStores: total}
	}
	q.PurchasedExtraStores = purchased
	q.UsedExtraStores = used

	if q.HasActiveSubscription {
		remaining := q.IncludedStoreLimit + q.PurchasedExtraStores - q.TotalStores
		if remaining < 0 {
			remaining = 0
		}
		q.RemainingSlots = remaining
		q.CanCreateStore = remaining > 0
	}

	q.UpgradeOptions = uc.catalog.UpgradeOptionsFrom(ctx, plan)
	return q
}

// Invalidate drops any cached snapshot for the account. Called after store
// creation/deletion and checkout confirmation.
func (uc *QuotaUseCase) Invalidate(ctx context.Context, accountID string) {
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, accountID)
	}
}
