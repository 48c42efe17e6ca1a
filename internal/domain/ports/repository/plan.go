package repository

import (
	"context"

	"storefront-automation/internal/domain/model"
)

// PlanRepository is the port for the remote pricing source that may override
// the fixed in-code catalog. Callers must treat any error as "use defaults".
type PlanRepository interface {
	Save(ctx context.Context, qx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Plan, error)
	ListAll(ctx context.Context, qx Tx) ([]*model.Plan, error)
	Delete(ctx context.Context, qx Tx, id string) error
}
