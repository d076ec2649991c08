package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/domain/client"
	"github.com/carelog/carelog/internal/domain/evv"
	"github.com/carelog/carelog/internal/platform/audit"
	"github.com/carelog/carelog/internal/platform/clock"
	"github.com/carelog/carelog/internal/platform/notification"
)

// CheckInResult is returned by CheckIn and CheckOut: the updated shift,
// the day's attendance row, and the EVV verdict when a reading was given.
type CheckInResult struct {
	Shift      *Shift                `json:"shift"`
	Attendance *Attendance           `json:"attendance"`
	EVV        *evv.ValidationResult `json:"evv,omitempty"`
}

// Service coordinates the per-day attendance state machine. Core state
// transitions are synchronous; notifications and audit entries are
// best-effort and never fail the transition.
type Service struct {
	shifts     Repository
	attendance AttendanceRepository
	clients    client.Repository
	dispatcher *notification.Dispatcher
	auditor    audit.Recorder
	clk        clock.Clock
	logger     zerolog.Logger

	defaultRadiusM float64
	lateGrace      time.Duration
}

// NewService constructs the shift service. defaultRadiusM applies when a
// client has no per-client geofence radius; lateGrace is how far past the
// scheduled start a check-in may be before supervisors are notified.
func NewService(shifts Repository, attendance AttendanceRepository, clients client.Repository,
	dispatcher *notification.Dispatcher, auditor audit.Recorder, clk clock.Clock,
	logger zerolog.Logger, defaultRadiusM float64, lateGrace time.Duration) *Service {
	return &Service{
		shifts:         shifts,
		attendance:     attendance,
		clients:        clients,
		dispatcher:     dispatcher,
		auditor:        auditor,
		clk:            clk,
		logger:         logger,
		defaultRadiusM: defaultRadiusM,
		lateGrace:      lateGrace,
	}
}

// Create validates and stores a new shift.
func (s *Service) Create(ctx context.Context, sh *Shift) error {
	if sh.CaregiverID == uuid.Nil {
		return fmt.Errorf("caregiver_id is required")
	}
	if sh.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if !sh.ScheduledEnd.After(sh.ScheduledStart) {
		return fmt.Errorf("scheduled_end must be after scheduled_start")
	}
	return s.shifts.Create(ctx, sh)
}

// Get returns a shift by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return s.shifts.GetByID(ctx, id)
}

// Cancel marks a shift CANCELLED. Only SCHEDULED and IN_PROGRESS shifts
// may be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID string) error {
	sh, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sh.IsClosed() {
		return ErrShiftClosed
	}
	sh.Status = StatusCancelled
	if err := s.shifts.Update(ctx, sh); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "shift.cancel", sh.ID, map[string]any{"status": StatusCancelled})
	return nil
}

// ListByCaregiver returns the caregiver's shifts starting in [from, to).
func (s *Service) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error) {
	return s.shifts.ListByCaregiver(ctx, caregiverID, from, to, limit, offset)
}

// Attendance returns the per-day attendance trail of a shift.
func (s *Service) Attendance(ctx context.Context, shiftID uuid.UUID) ([]*Attendance, error) {
	return s.attendance.ListByShift(ctx, shiftID)
}

// CheckIn records a caregiver's arrival for today. callerID must match the
// shift's assigned caregiver. A nil reading is allowed; EVV validation runs
// only when a reading is supplied.
func (s *Service) CheckIn(ctx context.Context, shiftID uuid.UUID, callerID string, reading *evv.Reading, source string) (*CheckInResult, error) {
	sh, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.CaregiverID.String() != callerID {
		return nil, ErrNotAssigned
	}
	if sh.IsClosed() {
		return nil, ErrShiftClosed
	}

	now := s.clk.Now()
	today := DayOf(now)

	existing, err := s.attendance.GetByShiftAndDate(ctx, shiftID, today)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.CheckInTime != nil {
		return nil, ErrAlreadyCheckedIn
	}

	cl, err := s.clients.GetByID(ctx, sh.ClientID)
	if err != nil {
		return nil, fmt.Errorf("loading client: %w", err)
	}

	var verdict *evv.ValidationResult
	if reading != nil {
		if err := reading.Validate(); err != nil {
			return nil, err
		}
		v := s.validateReading(*reading, cl)
		verdict = &v
		loc := evv.NewLocationData(*reading, v, source, now)
		sh.CheckInLocation = &loc
	}

	att := &Attendance{ShiftID: shiftID, Date: today, CheckInTime: &now}
	if err := s.attendance.InsertCheckIn(ctx, att); err != nil {
		return nil, err
	}

	if sh.ActualStart == nil {
		sh.ActualStart = &now
		sh.Status = StatusInProgress
	}
	if err := s.shifts.Update(ctx, sh); err != nil {
		return nil, err
	}

	s.afterCheckIn(ctx, sh, cl, now, verdict)

	return &CheckInResult{Shift: sh, Attendance: att, EVV: verdict}, nil
}

// CheckOut records a caregiver's departure for today. final marks this as
// the shift's last working day, completing the shift.
func (s *Service) CheckOut(ctx context.Context, shiftID uuid.UUID, callerID string, reading *evv.Reading, source string, final bool) (*CheckInResult, error) {
	sh, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.CaregiverID.String() != callerID {
		return nil, ErrNotAssigned
	}
	if sh.IsClosed() {
		return nil, ErrShiftClosed
	}

	now := s.clk.Now()
	today := DayOf(now)

	att, err := s.attendance.GetByShiftAndDate(ctx, shiftID, today)
	if err != nil {
		return nil, err
	}
	if att == nil || att.CheckInTime == nil {
		return nil, ErrNotCheckedIn
	}
	if att.CheckOutTime != nil {
		return nil, ErrAlreadyCheckedOut
	}

	cl, err := s.clients.GetByID(ctx, sh.ClientID)
	if err != nil {
		return nil, fmt.Errorf("loading client: %w", err)
	}

	var verdict *evv.ValidationResult
	if reading != nil {
		if err := reading.Validate(); err != nil {
			return nil, err
		}
		v := s.validateReading(*reading, cl)
		verdict = &v
		loc := evv.NewLocationData(*reading, v, source, now)
		sh.CheckOutLocation = &loc
	}

	if err := s.attendance.SetCheckOut(ctx, shiftID, today, now); err != nil {
		return nil, err
	}
	att.CheckOutTime = &now

	if final {
		sh.ActualEnd = &now
		sh.Status = StatusCompleted
	}
	if err := s.shifts.Update(ctx, sh); err != nil {
		return nil, err
	}

	s.afterCheckOut(ctx, sh, cl, now, verdict)

	return &CheckInResult{Shift: sh, Attendance: att, EVV: verdict}, nil
}

func (s *Service) validateReading(reading evv.Reading, cl *client.Client) evv.ValidationResult {
	loc, ok := cl.GeofenceLocation()
	if !ok {
		return evv.Unavailable("client has no registered coordinates")
	}
	return evv.ValidateLocation(reading, loc, s.defaultRadiusM)
}

func (s *Service) afterCheckIn(ctx context.Context, sh *Shift, cl *client.Client, now time.Time, verdict *evv.ValidationResult) {
	changes := map[string]any{"check_in_time": now}
	if verdict != nil {
		changes["evv_status"] = verdict.Status
		changes["evv_within_geofence"] = verdict.IsWithinGeofence
		changes["evv_distance_m"] = verdict.DistanceFromClient
	}
	s.recordAudit(ctx, sh.CaregiverID.String(), "shift.check_in", sh.ID, changes)

	data := map[string]string{
		"caregiver_name": sh.CaregiverID.String(),
		"client_name":    cl.FullName(),
		"time":           now.Format("15:04"),
		"evv_status":     evvStatusLabel(verdict),
	}
	s.dispatcher.SendToSponsor(ctx, cl.ID, notification.EventCheckInConfirmed, data)
	s.dispatcher.SendToRole(ctx, sh.CompanyID, "supervisor", notification.EventCheckInConfirmed, data)

	if late := now.Sub(sh.ScheduledStart); late >= s.lateGrace {
		s.dispatcher.SendToRole(ctx, sh.CompanyID, "supervisor", notification.EventLateCheckIn, map[string]string{
			"caregiver_name":  sh.CaregiverID.String(),
			"client_name":     cl.FullName(),
			"minutes_late":    fmt.Sprintf("%.0f", late.Minutes()),
			"scheduled_start": sh.ScheduledStart.Format("15:04"),
		})
	}

	if verdict != nil && verdict.Status == evv.StatusOutOfRange {
		s.dispatcher.SendToRole(ctx, sh.CompanyID, "supervisor", notification.EventGeofenceViolation, map[string]string{
			"caregiver_name": sh.CaregiverID.String(),
			"client_name":    cl.FullName(),
			"distance":       fmt.Sprintf("%.1f", verdict.DistanceFromClient),
			"radius":         fmt.Sprintf("%.0f", s.defaultRadiusM),
		})
	}
}

func (s *Service) afterCheckOut(ctx context.Context, sh *Shift, cl *client.Client, now time.Time, verdict *evv.ValidationResult) {
	changes := map[string]any{"check_out_time": now, "status": sh.Status}
	if verdict != nil {
		changes["evv_status"] = verdict.Status
		changes["evv_within_geofence"] = verdict.IsWithinGeofence
		changes["evv_distance_m"] = verdict.DistanceFromClient
	}
	s.recordAudit(ctx, sh.CaregiverID.String(), "shift.check_out", sh.ID, changes)

	s.dispatcher.SendToSponsor(ctx, cl.ID, notification.EventCheckOutConfirmed, map[string]string{
		"caregiver_name": sh.CaregiverID.String(),
		"client_name":    cl.FullName(),
		"time":           now.Format("15:04"),
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, entityID uuid.UUID, changes map[string]any) {
	err := s.auditor.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: "shift",
		EntityID:   entityID.String(),
		Changes:    changes,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func evvStatusLabel(v *evv.ValidationResult) string {
	if v == nil {
		return evv.StatusLocationUnavailable
	}
	return v.Status
}
