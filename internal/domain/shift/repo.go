package shift

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage port for shifts.
type Repository interface {
	Create(ctx context.Context, s *Shift) error
	GetByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	Update(ctx context.Context, s *Shift) error
	ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error)
	// FindOverlapping returns the caregiver's SCHEDULED or IN_PROGRESS
	// shifts whose [scheduled_start, scheduled_end) interval overlaps
	// [start, end).
	FindOverlapping(ctx context.Context, caregiverID uuid.UUID, start, end time.Time) ([]*Shift, error)
}

// AttendanceRepository is the storage port for per-day attendance records.
type AttendanceRepository interface {
	GetByShiftAndDate(ctx context.Context, shiftID uuid.UUID, date time.Time) (*Attendance, error)
	// InsertCheckIn creates the day's attendance row. It returns
	// ErrAlreadyCheckedIn when a row for (shift, date) already exists, which
	// makes repeated check-in attempts idempotent at the storage layer.
	InsertCheckIn(ctx context.Context, a *Attendance) error
	SetCheckOut(ctx context.Context, shiftID uuid.UUID, date, at time.Time) error
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*Attendance, error)
}
