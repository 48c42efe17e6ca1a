package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/ports/repository"
)

// Ensure accountRepo implements repository.AccountRepository
var _ repository.AccountRepository = (*accountRepo)(nil)

// accountRepo reads the accounts table owned by the identity service. This
// service never writes it.
type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

func (r *accountRepo) Exists(ctx context.Context, qx repository.Tx, accountID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1);`
	row, err := pickRow(ctx, r.pool, qx, q, accountID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}
