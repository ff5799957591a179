package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
)

var _ repository.TariffRepository = (*tariffRepo)(nil)

type tariffRepo struct{ pool *pgxpool.Pool }

func NewTariffRepo(pool *pgxpool.Pool) *tariffRepo {
	return &tariffRepo{pool: pool}
}

func scanTariff(row pgx.Row) (*model.Tariff, error) {
	t := &model.Tariff{}
	if err := row.Scan(&t.ID, &t.Name, &t.PricePerMonth, &t.DeviceLimit, &t.TrafficLimitGB, &t.Active, &t.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return t, nil
}

func (r *tariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	const q = `
INSERT INTO tariffs (id, name, price_per_month, device_limit, traffic_limit_gb, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
  SET name             = EXCLUDED.name,
      price_per_month  = EXCLUDED.price_per_month,
      device_limit     = EXCLUDED.device_limit,
      traffic_limit_gb = EXCLUDED.traffic_limit_gb,
      active           = EXCLUDED.active;`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Name, t.PricePerMonth, t.DeviceLimit, t.TrafficLimitGB, t.Active, t.CreatedAt)
	return err
}

func (r *tariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name, price_per_month, device_limit, traffic_limit_gb, active, created_at FROM tariffs WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanTariff(row)
}

func (r *tariffRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Tariff, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, name, price_per_month, device_limit, traffic_limit_gb, active, created_at FROM tariffs ORDER BY price_per_month, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, translate(rows.Err())
}

// Delete refuses while subscribers still hold the tariff.
func (r *tariffRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(1) FROM subscribers WHERE tariff_id = $1;`, id)
	if err != nil {
		return err
	}
	var cnt int
	if err := row.Scan(&cnt); err != nil {
		return domain.ErrReadDatabaseRow
	}
	if cnt > 0 {
		return domain.ErrConflict
	}

	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM tariffs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
