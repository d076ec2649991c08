package authorization

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed authorization repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const authCols = `id, client_id, company_id, hcpcs_code, start_date, end_date,
	authorized_units, used_units, unit_type, status, created_at, updated_at`

func scanAuthorization(row pgx.Row) (*Authorization, error) {
	var a Authorization
	err := row.Scan(&a.ID, &a.ClientID, &a.CompanyID, &a.HCPCSCode, &a.StartDate, &a.EndDate,
		&a.AuthorizedUnits, &a.UsedUnits, &a.UnitType, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Authorization) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO authorizations (id, client_id, company_id, hcpcs_code, start_date, end_date,
			authorized_units, used_units, unit_type, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.ClientID, a.CompanyID, a.HCPCSCode, a.StartDate, a.EndDate,
		a.AuthorizedUnits, a.UsedUnits, a.UnitType, a.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return scanAuthorization(r.conn(ctx).QueryRow(ctx, `SELECT `+authCols+` FROM authorizations WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Authorization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE authorizations SET start_date=$2, end_date=$3, authorized_units=$4, used_units=$5,
			unit_type=$6, status=$7, hcpcs_code=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.StartDate, a.EndDate, a.AuthorizedUnits, a.UsedUnits, a.UnitType, a.Status, a.HCPCSCode)
	return err
}

func (r *repoPG) ActiveForClient(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*Authorization, error) {
	a, err := scanAuthorization(r.conn(ctx).QueryRow(ctx, `
		SELECT `+authCols+` FROM authorizations
		WHERE client_id = $1 AND status = 'ACTIVE' AND start_date <= $2 AND end_date >= $2
		ORDER BY end_date DESC LIMIT 1`,
		clientID, asOf))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *repoPG) AddUsedUnits(ctx context.Context, id uuid.UUID, units float64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE authorizations SET used_units = used_units + $2, updated_at = NOW()
		WHERE id = $1`, id, units)
	return err
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM authorizations WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+authCols+` FROM authorizations WHERE client_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}
