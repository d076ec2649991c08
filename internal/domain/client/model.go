// Package client holds the client (care recipient) registry. Shifts and
// authorizations reference clients; EVV validation reads the client's
// registered coordinates and geofence radius from here.
package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog/internal/domain/evv"
)

// Client maps to the clients table.
type Client struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CompanyID       uuid.UUID  `db:"company_id" json:"company_id"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	AddressLine     *string    `db:"address_line" json:"address_line,omitempty"`
	City            *string    `db:"city" json:"city,omitempty"`
	State           *string    `db:"state" json:"state,omitempty"`
	PostalCode      *string    `db:"postal_code" json:"postal_code,omitempty"`
	Latitude        *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64   `db:"longitude" json:"longitude,omitempty"`
	GeofenceRadiusM *float64   `db:"geofence_radius_m" json:"geofence_radius_m,omitempty"`
	SponsorName     *string    `db:"sponsor_name" json:"sponsor_name,omitempty"`
	SponsorEmail    *string    `db:"sponsor_email" json:"sponsor_email,omitempty"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DischargedAt    *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
}

// FullName returns the client's display name.
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// GeofenceLocation returns the client's registered coordinates for EVV
// validation, or false when no coordinates are on file.
func (c *Client) GeofenceLocation() (evv.ClientLocation, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return evv.ClientLocation{}, false
	}
	loc := evv.ClientLocation{Latitude: *c.Latitude, Longitude: *c.Longitude}
	if c.GeofenceRadiusM != nil {
		loc.GeofenceRadius = *c.GeofenceRadiusM
	}
	return loc, true
}
