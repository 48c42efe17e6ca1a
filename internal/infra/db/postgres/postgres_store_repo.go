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

// Ensure storeRepo implements repository.StoreRepository
var _ repository.StoreRepository = (*storeRepo)(nil)

// storeRepo persists stores together with their automation profile. The
// state-machine methods are single conditional UPDATEs: the WHERE clause is
// the transition guard, so exactly one of N concurrent callers can win no
// matter how many service instances run.
type storeRepo struct {
	pool *pgxpool.Pool
}

func NewStoreRepo(pool *pgxpool.Pool) *storeRepo {
	return &storeRepo{pool: pool}
}

const storeColumns = `
  id, account_id, name, category, phone, status, price_cents, order_count,
  created_at, updated_at, deletion_requested,
  automation_interval_hours, automation_state, automation_attempts,
  automation_last_run_at, automation_last_success_at, automation_next_run_at,
  automation_claimed_at, automation_run_id`

func (r *storeRepo) Save(ctx context.Context, qx repository.Tx, s *model.Store) error {
	const q = `
INSERT INTO stores (
  id, account_id, name, category, phone, status, price_cents, order_count,
  created_at, updated_at, deletion_requested
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  name=$3, category=$4, phone=$5, status=$6, price_cents=$7, order_count=$8,
  updated_at=$10, deletion_requested=$11;`

	_, err := execSQL(ctx, r.pool, qx, q,
		s.ID, s.AccountID, s.Name, s.Category, s.Phone, string(s.Status),
		s.PriceCents, s.OrderCount, s.CreatedAt, s.UpdatedAt, s.DeletionRequested)
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

// InsertWithinLimit inserts only while the account's store count stays below
// limit. The guarded INSERT..SELECT makes the count check and the insert one
// statement, which is the final backstop against a double-create race.
func (r *storeRepo) InsertWithinLimit(ctx context.Context, qx repository.Tx, s *model.Store, limit int) error {
	const q = `
INSERT INTO stores (
  id, account_id, name, category, phone, status, price_cents, order_count,
  created_at, updated_at, deletion_requested
)
SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,FALSE
 WHERE (SELECT COUNT(*) FROM stores WHERE account_id=$2) < $11;`

	cmd, err := execSQL(ctx, r.pool, qx, q,
		s.ID, s.AccountID, s.Name, s.Category, s.Phone, string(s.Status),
		s.PriceCents, s.OrderCount, s.CreatedAt, s.UpdatedAt, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrQuotaExceeded
	}
	return nil
}

func (r *storeRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Store, error) {
	const q = `SELECT` + storeColumns + ` FROM stores WHERE id=$1;`
	return r.queryOne(ctx, qx, q, id)
}

func (r *storeRepo) FindByRunID(ctx context.Context, qx repository.Tx, runID string) (*model.Store, error) {
	const q = `SELECT` + storeColumns + ` FROM stores WHERE automation_run_id=$1;`
	return r.queryOne(ctx, qx, q, runID)
}

func (r *storeRepo) ListByAccount(ctx context.Context, qx repository.Tx, accountID string) ([]*model.Store, error) {
	const q = `SELECT` + storeColumns + ` FROM stores WHERE account_id=$1 ORDER BY created_at ASC;`
	return r.queryMany(ctx, qx, q, accountID)
}

func (r *storeRepo) CountByAccount(ctx context.Context, qx repository.Tx, accountID string) (int, error) {
	const q = `SELECT COUNT(*) FROM stores WHERE account_id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, accountID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *storeRepo) MarkDue(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE stores
   SET automation_state='due', updated_at=$1
 WHERE deletion_requested=FALSE
   AND automation_state='waiting'
   AND automation_interval_hours > 0
   AND automation_next_run_at IS NOT NULL
   AND automation_next_run_at <= $1;`

	cmd, err := execSQL(ctx, r.pool, qx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *storeRepo) ListDue(ctx context.Context, qx repository.Tx, now, staleBefore time.Time, limit int) ([]*model.Store, error) {
	const q = `SELECT` + storeColumns + `
  FROM stores
 WHERE deletion_requested=FALSE
   AND automation_interval_hours > 0
   AND (automation_state='due'
        OR (automation_state='retrying' AND automation_next_run_at <= $1)
        OR (automation_state='processing' AND automation_claimed_at < $2))
 ORDER BY automation_next_run_at ASC
 LIMIT $3;`
	return r.queryMany(ctx, qx, q, now, staleBefore, limit)
}

// Claim is the exclusivity point of the scheduler. The WHERE clause admits
// exactly the claimable states: due, retrying with backoff elapsed, or a
// processing claim old enough to be treated as abandoned.
func (r *storeRepo) Claim(ctx context.Context, qx repository.Tx, storeID, runID string, now, staleBefore time.Time) (bool, error) {
	const q = `
UPDATE stores
   SET automation_state='processing', automation_claimed_at=$3,
       automation_run_id=$2, updated_at=$3
 WHERE id=$1
   AND deletion_requested=FALSE
   AND automation_interval_hours > 0
   AND (automation_state='due'
        OR (automation_state='retrying' AND automation_next_run_at <= $3)
        OR (automation_state='processing' AND automation_claimed_at < $4));`

	cmd, err := execSQL(ctx, r.pool, qx, q, storeID, runID, now, staleBefore)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

// RecordSuccess keys on the run id, so a callback for a superseded run
// matches zero rows instead of clobbering a newer cycle.
func (r *storeRepo) RecordSuccess(ctx context.Context, qx repository.Tx, runID string, now, next time.Time) (bool, error) {
	const q = `
UPDATE stores
   SET automation_state='waiting', automation_last_run_at=$2,
       automation_last_success_at=$2, automation_next_run_at=$3,
       automation_attempts=0, automation_claimed_at=NULL,
       automation_run_id='', updated_at=$2
 WHERE automation_run_id=$1 AND automation_state='processing';`

	cmd, err := execSQL(ctx, r.pool, qx, q, runID, now, next)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *storeRepo) RecordFailure(ctx context.Context, qx repository.Tx, runID string, now time.Time, next *time.Time, state model.AutomationState, attempts int) (bool, error) {
	const q = `
UPDATE stores
   SET automation_state=$4, automation_last_run_at=$2, automation_next_run_at=$3,
       automation_attempts=$5, automation_claimed_at=NULL,
       automation_run_id=CASE WHEN $4='error' THEN '' ELSE automation_run_id END,
       updated_at=$2
 WHERE automation_run_id=$1 AND automation_state='processing';`

	cmd, err := execSQL(ctx, r.pool, qx, q, runID, now, next, string(state), attempts)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *storeRepo) ResetError(ctx context.Context, qx repository.Tx, storeID string, next time.Time) (bool, error) {
	const q = `
UPDATE stores
   SET automation_state='waiting', automation_next_run_at=$2,
       automation_attempts=0, updated_at=NOW()
 WHERE id=$1 AND automation_state='error';`

	cmd, err := execSQL(ctx, r.pool, qx, q, storeID, next)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *storeRepo) ProvisionAutomation(ctx context.Context, qx repository.Tx, storeID string, intervalHours int, next time.Time) error {
	const q = `
UPDATE stores
   SET automation_interval_hours=$2, automation_state='waiting',
       automation_next_run_at=$3, automation_attempts=0, updated_at=NOW()
 WHERE id=$1 AND automation_interval_hours=0;`

	cmd, err := execSQL(ctx, r.pool, qx, q, storeID, intervalHours, next)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		// Already provisioned is fine; a missing store is not.
		if _, err := r.FindByID(ctx, qx, storeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *storeRepo) SetDeletionRequested(ctx context.Context, qx repository.Tx, storeID string, requested bool) error {
	const q = `UPDATE stores SET deletion_requested=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, storeID, requested)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *storeRepo) Delete(ctx context.Context, qx repository.Tx, storeID string) error {
	const q = `DELETE FROM stores WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, storeID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *storeRepo) queryOne(ctx context.Context, qx repository.Tx, sql string, args ...interface{}) (*model.Store, error) {
	row, err := pickRow(ctx, r.pool, qx, sql, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanStore(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *storeRepo) queryMany(ctx context.Context, qx repository.Tx, sql string, args ...interface{}) ([]*model.Store, error) {
	rows, err := queryRows(ctx, r.pool, qx, sql, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanStore(row pgx.Row) (*model.Store, error) {
	s := &model.Store{}
	var (
		status        string
		intervalHours int
		state         *string
		attempts      int
		lastRunAt     *time.Time
		lastSuccessAt *time.Time
		nextRunAt     *time.Time
		claimedAt     *time.Time
		runID         *string
	)
	if err := row.Scan(
		&s.ID, &s.AccountID, &s.Name, &s.Category, &s.Phone, &status,
		&s.PriceCents, &s.OrderCount, &s.CreatedAt, &s.UpdatedAt, &s.DeletionRequested,
		&intervalHours, &state, &attempts,
		&lastRunAt, &lastSuccessAt, &nextRunAt, &claimedAt, &runID,
	); err != nil {
		return nil, err
	}
	s.Status = model.StoreStatus(status)
	if intervalHours > 0 {
		p := &model.AutomationProfile{
			IntervalHours: intervalHours,
			Attempts:      attempts,
			LastRunAt:     lastRunAt,
			LastSuccessAt: lastSuccessAt,
			NextRunAt:     nextRunAt,
			ClaimedAt:     claimedAt,
		}
		if state != nil {
			p.State = model.AutomationState(*state)
		}
		if runID != nil {
			p.CurrentRunID = *runID
		}
		s.Automation = p
	}
	return s, nil
}
