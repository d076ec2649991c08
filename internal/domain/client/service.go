package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	clients Repository
}

func NewService(clients Repository) *Service {
	return &Service{clients: clients}
}

func (s *Service) Create(ctx context.Context, c *Client) error {
	if c.CompanyID == uuid.Nil {
		return fmt.Errorf("company_id is required")
	}
	if c.FirstName == "" || c.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if c.GeofenceRadiusM != nil && *c.GeofenceRadiusM <= 0 {
		return fmt.Errorf("geofence_radius_m must be positive")
	}
	return s.clients.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, c *Client) error {
	if (c.Latitude == nil) != (c.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if c.GeofenceRadiusM != nil && *c.GeofenceRadiusM <= 0 {
		return fmt.Errorf("geofence_radius_m must be positive")
	}
	return s.clients.Update(ctx, c)
}

func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Client, int, error) {
	return s.clients.ListByCompany(ctx, companyID, limit, offset)
}
