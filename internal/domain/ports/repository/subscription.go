package repository

import (
	"context"

	"storefront-automation/internal/domain/model"
)

// SubscriptionRepository is the port for plan subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, qx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Subscription, error)

	// FindActiveByAccount returns the account's subscription whose status
	// counts as active (`active` or `trialing`), or ErrNotFound. At most one
	// such row exists per account.
	FindActiveByAccount(ctx context.Context, qx Tx, accountID string) (*model.Subscription, error)

	// FindActiveByStore returns the active subscription attached to a store,
	// or ErrNotFound. Used by the lifecycle guard.
	FindActiveByStore(ctx context.Context, qx Tx, storeID string) (*model.Subscription, error)

	UpdateStatus(ctx context.Context, qx Tx, id string, status model.SubscriptionStatus) error

	// CountActiveByPlan powers the stores/subscriptions metrics gauge.
	CountActiveByPlan(ctx context.Context, qx Tx) (map[string]int, error)
}

// AccountRepository exposes the minimal account read the quota resolver
// needs. Account CRUD itself lives outside this service.
type AccountRepository interface {
	Exists(ctx context.Context, qx Tx, accountID string) (bool, error)
}
