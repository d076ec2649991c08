package client

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the storage port for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*Client, int, error)
}
