package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/repository"
	"vpn-subscription/internal/infra/security"
)

var _ repository.ServerRepository = (*serverRepo)(nil)

// Sealer encrypts secrets bound to a scope.
type Sealer interface {
	Seal(plaintext, scope string) (string, error)
	Open(sealed, scope string) (string, error)
}

// serverRepo stores panel passwords and session tokens sealed with the
// server id as scope.
type serverRepo struct {
	pool *pgxpool.Pool
	box  Sealer
}

func NewServerRepo(pool *pgxpool.Pool, box Sealer) *serverRepo {
	return &serverRepo{pool: pool, box: box}
}

const serverCols = `id, name, scheme, host, port, base_path, username, password_enc, inbound_id, tariff_ids, active,
  sub_base_url, session_token, session_issued_at, created_at, updated_at`

func (r *serverRepo) scan(row pgx.Row) (*model.Server, error) {
	s := &model.Server{}
	var pass, token string
	if err := row.Scan(&s.ID, &s.Name, &s.Scheme, &s.Host, &s.Port, &s.BasePath, &s.Username, &pass, &s.InboundID, &s.TariffIDs, &s.Active,
		&s.SubBaseURL, &token, &s.SessionIssuedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	var err error
	if s.Password, err = r.open(pass, s.ID); err != nil {
		return nil, err
	}
	if s.SessionToken, err = r.open(token, s.ID); err != nil {
		// a token that no longer opens is just a stale session
		s.SessionToken, s.SessionIssuedAt = "", nil
	}
	return s, nil
}

func (r *serverRepo) open(v, scope string) (string, error) {
	if r.box == nil || v == "" {
		return v, nil
	}
	pt, err := r.box.Open(v, scope)
	if errors.Is(err, security.ErrNotSealed) {
		return v, nil
	}
	if err != nil {
		return "", domain.ErrReadDatabaseRow
	}
	return pt, nil
}

func (r *serverRepo) seal(v, scope string) (string, error) {
	if r.box == nil {
		return v, nil
	}
	out, err := r.box.Seal(v, scope)
	if err != nil {
		return "", domain.ErrOperationFailed
	}
	return out, nil
}

func (r *serverRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	const q = `
INSERT INTO servers (` + serverCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
  name=$2, scheme=$3, host=$4, port=$5, base_path=$6, username=$7, password_enc=$8, inbound_id=$9, tariff_ids=$10, active=$11,
  sub_base_url=$12, session_token=$13, session_issued_at=$14, updated_at=$16;`

	pass, err := r.seal(s.Password, s.ID)
	if err != nil {
		return err
	}
	token, err := r.seal(s.SessionToken, s.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	tariffs := s.TariffIDs
	if tariffs == nil {
		tariffs = []string{}
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		s.ID, s.Name, s.Scheme, s.Host, s.Port, s.BasePath, s.Username, pass, s.InboundID, tariffs, s.Active,
		s.SubBaseURL, token, s.SessionIssuedAt, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *serverRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Server, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+serverCols+` FROM servers WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return r.scan(row)
}

func (r *serverRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Server, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+serverCols+` FROM servers ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Server
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, translate(rows.Err())
}

func (r *serverRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM servers WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *serverRepo) UpdateSession(ctx context.Context, tx repository.Tx, id, token string, issuedAt *time.Time) error {
	sealed, err := r.seal(token, id)
	if err != nil {
		return err
	}
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE servers SET session_token=$2, session_issued_at=$3, updated_at=NOW() WHERE id=$1;`, id, sealed, issuedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
