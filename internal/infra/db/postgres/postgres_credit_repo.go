package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// Ensure creditRepo implements repository.CreditRepository
var _ repository.CreditRepository = (*creditRepo)(nil)

type creditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *creditRepo {
	return &creditRepo{pool: pool}
}

func (r *creditRepo) Save(ctx context.Context, qx repository.Tx, c *model.ExtraStoreCredit) error {
	const q = `
INSERT INTO extra_store_credits (id, account_id, plan_id, store_id, purchased_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET store_id=$4;`

	_, err := execSQL(ctx, r.pool, qx, q, c.ID, c.AccountID, string(c.PlanID), c.StoreID, c.PurchasedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *creditRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	const q = `SELECT COUNT(*) FROM extra_store_credits WHERE account_id=$1;`
	return r.count(ctx, qx, q, accountID)
}

func (r *creditRepo) CountAssigned(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	const q = `SELECT COUNT(*) FROM extra_store_credits WHERE account_id=$1 AND store_id IS NOT NULL;`
	return r.count(ctx, qx, q, accountID)
}

// AssignNextAvailable pins one free credit to the store. The nested SELECT
// with FOR UPDATE SKIP LOCKED keeps two concurrent creations from grabbing
// the same credit.
func (r *creditRepo) AssignNextAvailable(ctx context.Context, qx repository.Tx, accountID, storeID string) (bool, error) {
	const q = `
UPDATE extra_store_credits
   SET store_id=$2
 WHERE id = (
   SELECT id FROM extra_store_credits
    WHERE account_id=$1 AND store_id IS NULL
    ORDER BY purchased_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
 );`

	cmd, err := execSQL(ctx, r.pool, qx, q, accountID, storeID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *creditRepo) Release(ctx context.Context, qx repository.Tx, storeID string) error {
	const q = `UPDATE extra_store_credits SET store_id=NULL WHERE store_id=$1;`
	if _, err := execSQL(ctx, r.pool, qx, q, storeID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *creditRepo) count(ctx context.Context, qx repository.Tx, sql string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, qx, sql, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
