package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-automation/internal/domain"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
)

// Ensure paymentRepo implements repository.PaymentRepository
var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `
  id, account_id, kind, plan_id, store_id, yearly, provider, amount_cents,
  currency, session_id, ref_id, status, created_at, updated_at, paid_at,
  description, meta`

func (r *paymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, account_id, kind, plan_id, store_id, yearly, provider, amount_cents,
  currency, session_id, ref_id, status, created_at, updated_at, paid_at,
  description, meta
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  session_id=$10, ref_id=$11, status=$12, updated_at=$14, paid_at=$15, meta=$17;`

	_, err := execSQL(ctx, r.pool, qx, q,
		p.ID, p.AccountID, string(p.Kind), string(p.PlanID), p.StoreID, p.Yearly,
		p.Provider, p.AmountCents, p.Currency, p.SessionID, p.RefID, string(p.Status),
		p.CreatedAt, p.UpdatedAt, p.PaidAt, p.Description, p.Meta)
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

func (r *paymentRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payment, error) {
	const q = `SELECT` + paymentColumns + ` FROM payments WHERE id=$1;`
	return r.queryOne(ctx, qx, q, id)
}

func (r *paymentRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Payment, error) {
	const q = `SELECT` + paymentColumns + ` FROM payments WHERE session_id=$1;`
	return r.queryOne(ctx, qx, q, sessionID)
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error {
	const q = `
UPDATE payments
   SET status=$2, ref_id=COALESCE($3, ref_id), paid_at=COALESCE($4, paid_at), updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, string(status), refID, paidAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, qx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	const q = `
SELECT` + paymentColumns + `
  FROM payments
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, cutoff, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, qx repository.Tx, sql string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, qx, sql, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var kind, planID, status string
	if err := row.Scan(
		&p.ID, &p.AccountID, &kind, &planID, &p.StoreID, &p.Yearly, &p.Provider,
		&p.AmountCents, &p.Currency, &p.SessionID, &p.RefID, &status,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.Description, &p.Meta,
	); err != nil {
		return nil, err
	}
	p.Kind = model.PaymentKind(kind)
	p.PlanID = model.PlanID(planID)
	p.Status = model.PaymentStatus(status)
	return p, nil
}
