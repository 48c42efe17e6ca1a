package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, account_id, store_id, plan_id, status, current_period_end, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, account_id, store_id, plan_id, status, current_period_end, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  store_id=$3, plan_id=$4, status=$5, current_period_end=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, qx, q,
		s.ID, s.AccountID, s.StoreID, string(s.PlanID), string(s.Status),
		s.CurrentPeriodEnd, s.CreatedAt, s.UpdatedAt)
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

func (r *subscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE id=$1;`
	return r.queryOne(ctx, qx, q, id)
}

func (r *subscriptionRepo) FindActiveByAccount(ctx context.Context, qx repository.Tx, accountID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE account_id=$1 AND store_id IS NULL AND status IN ('active','trialing')
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, qx, q, accountID)
}

func (r *subscriptionRepo) FindActiveByStore(ctx context.Context, qx repository.Tx, storeID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE store_id=$1 AND status IN ('active','trialing')
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, qx, q, storeID)
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.SubscriptionStatus) error {
	const q = `UPDATE subscriptions SET status=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(status))
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) CountActiveByPlan(ctx context.Context, qx repository.Tx) (map[string]int, error) {
	const q = `
SELECT plan_id, COUNT(*)
  FROM subscriptions
 WHERE status IN ('active','trialing')
 GROUP BY plan_id;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	m := make(map[string]int)
	for rows.Next() {
		var planID string
		var c int
		if err := rows.Scan(&planID, &c); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		m[planID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, qx repository.Tx, sql string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, qx, sql, args...)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	var planID, status string
	if err := row.Scan(&s.ID, &s.AccountID, &s.StoreID, &planID, &status,
		&s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.PlanID = model.PlanID(planID)
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
