package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
)

var _ repository.RollbackLedger = (*rollbackRepo)(nil)

type rollbackRepo struct{ pool *pgxpool.Pool }

func NewRollbackLedger(pool *pgxpool.Pool) *rollbackRepo {
	return &rollbackRepo{pool: pool}
}

const rollbackCols = `id, operation, subscriber_id, server_id, client_id, original_error, rollback_error, status,
  created_at, resolved_at, resolution_note`

func scanRollback(row pgx.Row) (*model.RollbackEntry, error) {
	e := &model.RollbackEntry{}
	var status string
	if err := row.Scan(&e.ID, &e.Operation, &e.SubscriberID, &e.ServerID, &e.ClientID, &e.OriginalError, &e.RollbackError, &status,
		&e.CreatedAt, &e.ResolvedAt, &e.ResolutionNote); err != nil {
		return nil, scanErr(err)
	}
	e.Status = model.RollbackStatus(status)
	return e, nil
}

// Save is insert-only; entries change only through Resolve.
func (r *rollbackRepo) Save(ctx context.Context, tx repository.Tx, e *model.RollbackEntry) error {
	const q = `INSERT INTO rollback_ledger (` + rollbackCols + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.Operation, e.SubscriberID, e.ServerID, e.ClientID, e.OriginalError, e.RollbackError, string(e.Status),
		e.CreatedAt, e.ResolvedAt, e.ResolutionNote)
	return err
}

func (r *rollbackRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RollbackEntry, error) {
	q := `SELECT ` + rollbackCols + ` FROM rollback_ledger WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRollback(row)
}

// List returns entries oldest first. An empty status lists everything.
func (r *rollbackRepo) List(ctx context.Context, tx repository.Tx, status model.RollbackStatus, limit int) ([]*model.RollbackEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + rollbackCols + ` FROM rollback_ledger
 WHERE ($1 = '' OR status = $1)
 ORDER BY created_at, id
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.RollbackEntry
	for rows.Next() {
		e, err := scanRollback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, translate(rows.Err())
}

func (r *rollbackRepo) Resolve(ctx context.Context, tx repository.Tx, id, note string, at time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE rollback_ledger SET status='resolved', resolved_at=$2, resolution_note=$3 WHERE id=$1 AND status='pending';`, id, at, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
