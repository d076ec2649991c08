package authorization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog/internal/platform/clock"
)

// Service manages payer authorizations. Balances here are advisory for
// scheduling: consumption happens there, this service owns the records.
type Service struct {
	auths Repository
	clk   clock.Clock
}

func NewService(auths Repository, clk clock.Clock) *Service {
	return &Service{auths: auths, clk: clk}
}

func (s *Service) Create(ctx context.Context, a *Authorization) error {
	if a.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if !a.EndDate.After(a.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if a.AuthorizedUnits <= 0 {
		return fmt.Errorf("authorized_units must be positive")
	}
	if _, err := UnitsFor(a.UnitType, 1, 1); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	return s.auths.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return s.auths.GetByID(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	return s.auths.ListByClient(ctx, clientID, limit, offset)
}

// ActiveBalance reports the client's current ACTIVE authorization, or nil
// when the client has none covering today.
func (s *Service) ActiveBalance(ctx context.Context, clientID uuid.UUID) (*Authorization, error) {
	return s.auths.ActiveForClient(ctx, clientID, s.clk.Now())
}

// Expire marks authorizations whose end date has passed. Run alongside the
// credential sweep; EXHAUSTED is set by scheduling when units run out.
func (s *Service) Expire(ctx context.Context, a *Authorization) error {
	if a.Status != StatusActive {
		return nil
	}
	if a.EndDate.After(s.clk.Now()) {
		return nil
	}
	a.Status = StatusExpired
	a.UpdatedAt = time.Now().UTC()
	return s.auths.Update(ctx, a)
}
