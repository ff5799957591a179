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

var _ repository.SubscriberRepository = (*subscriberRepo)(nil)

type subscriberRepo struct{ pool *pgxpool.Pool }

func NewSubscriberRepo(pool *pgxpool.Pool) *subscriberRepo {
	return &subscriberRepo{pool: pool}
}

const subscriberCols = `id, client_id, sub_token, label, tariff_id, server_id, device_limit, traffic_limit_gb, expires_at,
  payment_status, test_period_start, test_period_end, unpaid_since, discount, applied_order_ids, created_at, updated_at`

func scanSubscriber(row pgx.Row) (*model.Subscriber, error) {
	s := &model.Subscriber{}
	var status string
	if err := row.Scan(&s.ID, &s.ClientID, &s.SubToken, &s.Label, &s.TariffID, &s.ServerID, &s.DeviceLimit, &s.TrafficLimitGB, &s.ExpiresAt,
		&status, &s.TestPeriodStart, &s.TestPeriodEnd, &s.UnpaidSince, &s.Discount, &s.AppliedOrderIDs, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	s.PaymentStatus = model.PaymentStatus(status)
	return s, nil
}

func (r *subscriberRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscriber) error {
	const q = `
INSERT INTO subscribers (` + subscriberCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
  client_id=$2, sub_token=$3, label=$4, tariff_id=$5, server_id=$6, device_limit=$7, traffic_limit_gb=$8, expires_at=$9,
  payment_status=$10, test_period_start=$11, test_period_end=$12, unpaid_since=$13, discount=$14, applied_order_ids=$15, updated_at=$17;`

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	applied := s.AppliedOrderIDs
	if applied == nil {
		applied = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.ClientID, s.SubToken, s.Label, s.TariffID, s.ServerID, s.DeviceLimit, s.TrafficLimitGB, s.ExpiresAt,
		string(s.PaymentStatus), s.TestPeriodStart, s.TestPeriodEnd, s.UnpaidSince, s.Discount, applied, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *subscriberRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscriber, error) {
	q := `SELECT ` + subscriberCols + ` FROM subscribers WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscriber(row)
}

func (r *subscriberRepo) FindBySubToken(ctx context.Context, tx repository.Tx, token string) (*model.Subscriber, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+subscriberCols+` FROM subscribers WHERE sub_token=$1;`, token)
	if err != nil {
		return nil, err
	}
	return scanSubscriber(row)
}

func (r *subscriberRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscribers WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDue mirrors model.Subscriber.Evaluate in SQL and pages by id after afterID.
func (r *subscriberRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, afterID string, limit int) ([]*model.Subscriber, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + subscriberCols + `
  FROM subscribers
 WHERE id > $3
   AND ((payment_status = 'test_period' AND test_period_end IS NOT NULL AND test_period_end <= $1)
    OR (payment_status = 'paid' AND expires_at IS NOT NULL AND expires_at <= $1)
    OR (payment_status = 'unpaid' AND unpaid_since IS NOT NULL AND unpaid_since <= $2))
 ORDER BY id
 LIMIT $4;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, now.Add(-model.UnpaidGrace), afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriberRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT payment_status, COUNT(*) FROM subscribers GROUP BY payment_status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.PaymentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.PaymentStatus(status)] = n
	}
	return out, translate(rows.Err())
}
