// Package authorization tracks payer authorizations: unit limits for a
// client's care over a date range, consumed as shifts are scheduled.
package authorization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Unit types.
const (
	UnitHourly        = "HOURLY"
	UnitQuarterHourly = "QUARTER_HOURLY"
	UnitDaily         = "DAILY"
)

// Statuses.
const (
	StatusActive    = "ACTIVE"
	StatusExpired   = "EXPIRED"
	StatusExhausted = "EXHAUSTED"
)

// Authorization maps to the authorizations table.
type Authorization struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClientID        uuid.UUID `db:"client_id" json:"client_id"`
	CompanyID       uuid.UUID `db:"company_id" json:"company_id"`
	HCPCSCode       *string   `db:"hcpcs_code" json:"hcpcs_code,omitempty"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	AuthorizedUnits float64   `db:"authorized_units" json:"authorized_units"`
	UsedUnits       float64   `db:"used_units" json:"used_units"`
	UnitType        string    `db:"unit_type" json:"unit_type"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingUnits returns the authorized balance left to schedule against.
func (a *Authorization) RemainingUnits() float64 {
	return a.AuthorizedUnits - a.UsedUnits
}

// Covers reports whether the authorization's date range includes d.
func (a *Authorization) Covers(d time.Time) bool {
	return !d.Before(a.StartDate) && !d.After(a.EndDate)
}

// UnitsFor converts scheduled time into authorization units. HOURLY bills
// decimal hours, QUARTER_HOURLY bills 15-minute increments, DAILY bills one
// unit per shift regardless of duration.
func UnitsFor(unitType string, hoursPerShift float64, shiftCount int) (float64, error) {
	switch unitType {
	case UnitHourly:
		return hoursPerShift * float64(shiftCount), nil
	case UnitQuarterHourly:
		return hoursPerShift * 4 * float64(shiftCount), nil
	case UnitDaily:
		return float64(shiftCount), nil
	default:
		return 0, fmt.Errorf("unknown unit type: %s", unitType)
	}
}
