package authorization

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage port for authorizations.
type Repository interface {
	Create(ctx context.Context, a *Authorization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error)
	Update(ctx context.Context, a *Authorization) error
	// ActiveForClient returns the client's ACTIVE authorization covering
	// asOf, or nil when none exists.
	ActiveForClient(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*Authorization, error)
	// AddUsedUnits atomically increments used_units.
	AddUsedUnits(ctx context.Context, id uuid.UUID, units float64) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error)
}
