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

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderCols = `id, subscriber_id, tariff_id, devices, months, amount, discount, currency, provider, external_ref, pay_url,
  status, created_at, completed_at, provisioned_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var status string
	if err := row.Scan(&o.ID, &o.SubscriberID, &o.TariffID, &o.Devices, &o.Months, &o.Amount, &o.Discount, &o.Currency, &o.Provider,
		&o.ExternalRef, &o.PayURL, &status, &o.CreatedAt, &o.CompletedAt, &o.ProvisionedAt); err != nil {
		return nil, scanErr(err)
	}
	o.Status = model.OrderStatus(status)
	return o, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (` + orderCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  external_ref=$10, pay_url=$11, status=$12, completed_at=$14, provisioned_at=$15;`
	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.SubscriberID, o.TariffID, o.Devices, o.Months, o.Amount, o.Discount, o.Currency, o.Provider,
		o.ExternalRef, o.PayURL, string(o.Status), o.CreatedAt, o.CompletedAt, o.ProvisionedAt)
	return err
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, ref string) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE external_ref=$1 ORDER BY created_at DESC LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, ref)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindPendingSince(ctx context.Context, tx repository.Tx, subscriberID string, since time.Time) ([]*model.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders
 WHERE subscriber_id=$1 AND status='pending' AND created_at > $2
 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriberID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, translate(rows.Err())
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, completedAt *time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE orders SET status=$2, completed_at=COALESCE($3, completed_at) WHERE id=$1;`, id, string(status), completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) MarkProvisioned(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE orders SET provisioned_at=$2 WHERE id=$1 AND provisioned_at IS NULL;`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) ListUnsettled(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderCols + ` FROM orders
 WHERE created_at < $1
   AND (status = 'pending' OR (status = 'completed' AND provisioned_at IS NULL))
 ORDER BY created_at
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, translate(rows.Err())
}
