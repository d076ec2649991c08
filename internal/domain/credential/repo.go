package credential

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage port for credentials and their alerts.
type Repository interface {
	// ActiveCompanies lists companies whose credentials the sweep covers.
	ActiveCompanies(ctx context.Context) ([]uuid.UUID, error)
	// ListByCompany returns the company's non-revoked credentials with
	// type thresholds and caregiver contact details joined in.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Credential, error)
	// UpdateSweepState persists the fields the sweep mutates.
	UpdateSweepState(ctx context.Context, c *Credential) error
	CreateAlert(ctx context.Context, a *Alert) error
	// LatestAlertTimes returns, per alert type, the creation time of the
	// credential's most recent alert.
	LatestAlertTimes(ctx context.Context, credentialID uuid.UUID) (map[string]time.Time, error)
	ListAlerts(ctx context.Context, credentialID uuid.UUID, limit, offset int) ([]*Alert, int, error)
}
