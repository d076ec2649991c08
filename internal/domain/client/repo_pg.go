package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed client repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const clientCols = `id, company_id, first_name, last_name, address_line, city, state, postal_code,
	latitude, longitude, geofence_radius_m, sponsor_name, sponsor_email, status,
	created_at, updated_at, discharged_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &c.LastName, &c.AddressLine, &c.City,
		&c.State, &c.PostalCode, &c.Latitude, &c.Longitude, &c.GeofenceRadiusM,
		&c.SponsorName, &c.SponsorEmail, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.DischargedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "ACTIVE"
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clients (id, company_id, first_name, last_name, address_line, city, state,
			postal_code, latitude, longitude, geofence_radius_m, sponsor_name, sponsor_email, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.CompanyID, c.FirstName, c.LastName, c.AddressLine, c.City, c.State,
		c.PostalCode, c.Latitude, c.Longitude, c.GeofenceRadiusM, c.SponsorName, c.SponsorEmail, c.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET first_name=$2, last_name=$3, address_line=$4, city=$5, state=$6,
			postal_code=$7, latitude=$8, longitude=$9, geofence_radius_m=$10,
			sponsor_name=$11, sponsor_email=$12, status=$13, discharged_at=$14, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.AddressLine, c.City, c.State,
		c.PostalCode, c.Latitude, c.Longitude, c.GeofenceRadiusM,
		c.SponsorName, c.SponsorEmail, c.Status, c.DischargedAt)
	return err
}

func (r *repoPG) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clientCols+` FROM clients WHERE company_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}
