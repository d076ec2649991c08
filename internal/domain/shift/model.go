// Package shift holds scheduled caregiver visits and the per-day
// check-in/check-out attendance records that verify them.
package shift

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carelog/carelog/internal/domain/evv"
)

// Shift statuses. Transitions are monotonic: SCHEDULED -> IN_PROGRESS ->
// COMPLETED. CANCELLED is reachable from SCHEDULED or IN_PROGRESS only and
// is terminal.
const (
	StatusScheduled  = "SCHEDULED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Sentinel errors returned by the attendance state machine.
var (
	ErrNotFound          = errors.New("shift not found")
	ErrNotAssigned       = errors.New("caregiver is not assigned to this shift")
	ErrShiftClosed       = errors.New("shift is already completed or cancelled")
	ErrAlreadyCheckedIn  = errors.New("already checked in for this day")
	ErrNotCheckedIn      = errors.New("no open check-in for this day")
	ErrAlreadyCheckedOut = errors.New("already checked out for this day")
)

// Shift maps to the shifts table. Check-in/out locations are stored as
// serialized EVV records owned by the shift row.
type Shift struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	CompanyID        uuid.UUID         `db:"company_id" json:"company_id"`
	CaregiverID      uuid.UUID         `db:"caregiver_id" json:"caregiver_id"`
	ClientID         uuid.UUID         `db:"client_id" json:"client_id"`
	ScheduledStart   time.Time         `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd     time.Time         `db:"scheduled_end" json:"scheduled_end"`
	ActualStart      *time.Time        `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd        *time.Time        `db:"actual_end" json:"actual_end,omitempty"`
	Status           string            `db:"status" json:"status"`
	CheckInLocation  *evv.LocationData `db:"check_in_location" json:"check_in_location,omitempty"`
	CheckOutLocation *evv.LocationData `db:"check_out_location" json:"check_out_location,omitempty"`
	Notes            *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// IsClosed reports whether the shift can no longer accept attendance events.
func (s *Shift) IsClosed() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// Attendance maps to the shift_attendance table: one row per (shift,
// calendar day), supporting multi-day shifts. Date is UTC midnight.
type Attendance struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ShiftID      uuid.UUID  `db:"shift_id" json:"shift_id"`
	Date         time.Time  `db:"date" json:"date"`
	CheckInTime  *time.Time `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// DayOf truncates t to UTC midnight, the attendance natural-key grain.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
