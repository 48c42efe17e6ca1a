package repository

import (
	"context"

	"storefront-automation/internal/domain/model"
)

// CreditRepository is the port for extra-store credits.
type CreditRepository interface {
	Save(ctx context.Context, qx Tx, c *model.ExtraStoreCredit) error
	CountByAccount(ctx context.Context, qx Tx, accountID string) (int, error)
	CountAssigned(ctx context.Context, qx Tx, accountID string) (int, error)

	// AssignNextAvailable attaches one unassigned credit to the store via a
	// conditional update. Returns assigned=false when the pool is empty.
	AssignNextAvailable(ctx context.Context, qx Tx, accountID, storeID string) (assigned bool, err error)

	// Release frees the credit assigned to the store back to the pool.
	// No-op when the store held none.
	Release(ctx context.Context, qx Tx, storeID string) error
}
