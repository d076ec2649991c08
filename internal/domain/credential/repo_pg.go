package credential

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed credential repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const credCols = `c.id, c.company_id, c.caregiver_id, c.caregiver_name, c.caregiver_email,
	c.credential_type_id, t.name, t.reminder_days, c.expiration_date, c.status,
	c.reminders_sent_days, c.expired_alert_sent, c.last_reminder_sent, c.created_at, c.updated_at`

const credFrom = ` FROM caregiver_credentials c JOIN credential_types t ON t.id = c.credential_type_id`

func scanCredential(row pgx.Row) (*Credential, error) {
	var c Credential
	err := row.Scan(&c.ID, &c.CompanyID, &c.CaregiverID, &c.CaregiverName, &c.CaregiverEmail,
		&c.TypeID, &c.TypeName, &c.ReminderDays, &c.ExpirationDate, &c.Status,
		&c.RemindersSentDays, &c.ExpiredAlertSent, &c.LastReminderSent, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) ActiveCompanies(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id FROM companies WHERE status = 'ACTIVE' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *repoPG) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Credential, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+credCols+credFrom+` WHERE c.company_id = $1 AND c.status <> 'REVOKED' ORDER BY c.expiration_date`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return scanCredential(r.conn(ctx).QueryRow(ctx, `SELECT `+credCols+credFrom+` WHERE c.id = $1`, id))
}

func (r *repoPG) UpdateSweepState(ctx context.Context, c *Credential) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE caregiver_credentials
		SET status=$2, reminders_sent_days=$3, expired_alert_sent=$4, last_reminder_sent=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.RemindersSentDays, c.ExpiredAlertSent, c.LastReminderSent)
	return err
}

func (r *repoPG) CreateAlert(ctx context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO credential_alerts (id, credential_id, alert_type, severity, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CredentialID, a.AlertType, a.Severity, a.Message, a.CreatedAt)
	return err
}

func (r *repoPG) LatestAlertTimes(ctx context.Context, credentialID uuid.UUID) (map[string]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT alert_type, MAX(created_at) FROM credential_alerts
		WHERE credential_id = $1 GROUP BY alert_type`, credentialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]time.Time)
	for rows.Next() {
		var alertType string
		var at time.Time
		if err := rows.Scan(&alertType, &at); err != nil {
			return nil, err
		}
		out[alertType] = at
	}
	return out, nil
}

func (r *repoPG) ListAlerts(ctx context.Context, credentialID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM credential_alerts WHERE credential_id = $1`, credentialID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, credential_id, alert_type, severity, message, created_at
		FROM credential_alerts WHERE credential_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, credentialID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.CredentialID, &a.AlertType, &a.Severity, &a.Message, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &a)
	}
	return items, total, nil
}
