package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// Ensure planRepo implements repository.PlanRepository
var _ repository.PlanRepository = (*planRepo)(nil)

// planRepo stores pricing overrides for the fixed plan catalog. Rows are
// optional: a missing row means the in-code defaults apply.
type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, qx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (
  id, name, included_stores, monthly_price_cents, yearly_price_cents,
  yearly_discount_percent, extra_store_price_cents, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (id) DO UPDATE SET
  name=$2, included_stores=$3, monthly_price_cents=$4, yearly_price_cents=$5,
  yearly_discount_percent=$6, extra_store_price_cents=$7;`

	_, err := execSQL(ctx, r.pool, qx, q,
		string(p.ID), p.Name, p.IncludedStores, p.MonthlyPriceCents,
		p.YearlyPriceCents, p.YearlyDiscountPercent, p.ExtraStorePriceCents)
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

func (r *planRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Plan, error) {
	const q = `
SELECT id, name, included_stores, monthly_price_cents, yearly_price_cents,
       yearly_discount_percent, extra_store_price_cents, created_at
  FROM plans
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListAll(ctx context.Context, qx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, name, included_stores, monthly_price_cents, yearly_price_cents,
       yearly_discount_percent, extra_store_price_cents, created_at
  FROM plans
 ORDER BY included_stores ASC;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	const q = `DELETE FROM plans WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, qx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	var id string
	if err := row.Scan(&id, &p.Name, &p.IncludedStores, &p.MonthlyPriceCents,
		&p.YearlyPriceCents, &p.YearlyDiscountPercent, &p.ExtraStorePriceCents, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.ID = model.PlanID(id)
	return p, nil
}
