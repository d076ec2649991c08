package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/domain/authorization"
	"github.com/carelog/carelog/internal/domain/shift"
	"github.com/carelog/carelog/internal/platform/audit"
)

// ErrConflict marks a bulk commit aborted by an overlapping shift when the
// caller did not ask for conflicting dates to be skipped.
var ErrConflict = errors.New("scheduling conflict")

// BulkRequest describes a recurring schedule to expand.
type BulkRequest struct {
	ClientID      uuid.UUID `json:"clientId"`
	CaregiverID   uuid.UUID `json:"carerId"`
	StartDate     string    `json:"startDate"`
	NumberOfWeeks int       `json:"numberOfWeeks"`
	SelectedDays  []int     `json:"selectedDays"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	SkipConflicts bool      `json:"skipConflicts"`
}

type parsedRequest struct {
	BulkRequest
	start                  time.Time
	startHour, startMinute int
	endHour, endMinute     int
	hoursPerShift          float64
}

func (r BulkRequest) parse() (*parsedRequest, error) {
	if r.ClientID == uuid.Nil {
		return nil, fmt.Errorf("clientId is required")
	}
	if r.CaregiverID == uuid.Nil {
		return nil, fmt.Errorf("carerId is required")
	}
	if r.NumberOfWeeks < 1 || r.NumberOfWeeks > 12 {
		return nil, fmt.Errorf("numberOfWeeks must be between 1 and 12")
	}
	if len(r.SelectedDays) == 0 {
		return nil, fmt.Errorf("selectedDays must not be empty")
	}
	seen := map[int]bool{}
	for _, d := range r.SelectedDays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("selectedDays values must be 0 (Sunday) through 6 (Saturday)")
		}
		if seen[d] {
			return nil, fmt.Errorf("selectedDays contains duplicate day %d", d)
		}
		seen[d] = true
	}

	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid startDate %q, want YYYY-MM-DD", r.StartDate)
	}

	p := &parsedRequest{BulkRequest: r, start: start}
	if p.startHour, p.startMinute, err = ParseTimeOfDay(r.StartTime); err != nil {
		return nil, err
	}
	if p.endHour, p.endMinute, err = ParseTimeOfDay(r.EndTime); err != nil {
		return nil, err
	}

	startMin := p.startHour*60 + p.startMinute
	endMin := p.endHour*60 + p.endMinute
	if endMin <= startMin {
		return nil, fmt.Errorf("endTime must be after startTime")
	}
	p.hoursPerShift = float64(endMin-startMin) / 60
	return p, nil
}

// Conflict describes one candidate date blocked by an existing shift.
type Conflict struct {
	Date          string    `json:"date"`
	ShiftID       uuid.UUID `json:"shiftId"`
	ExistingStart time.Time `json:"existingStart"`
	ExistingEnd   time.Time `json:"existingEnd"`
}

// Preview is the read-only projection of a bulk request.
type Preview struct {
	Dates              []string   `json:"dates"`
	Conflicts          []Conflict `json:"conflicts"`
	TotalHours         float64    `json:"totalHours"`
	TotalUnitsConsumed float64    `json:"totalUnitsConsumed"`
	UnitType           string     `json:"unitType,omitempty"`
	RemainingUnits     *float64   `json:"remainingUnits,omitempty"`
	SufficientUnits    *bool      `json:"sufficientUnits,omitempty"`
}

// Result reports a committed bulk creation.
type Result struct {
	Created            int            `json:"created"`
	Skipped            int            `json:"skipped"`
	Shifts             []*shift.Shift `json:"shifts"`
	SkippedDates       []string       `json:"skippedDates"`
	Conflicts          []Conflict     `json:"conflicts"`
	TotalHours         float64        `json:"totalHours"`
	TotalUnitsConsumed float64        `json:"totalUnitsConsumed"`
}

// TxRunner executes fn inside a database transaction. The production wiring
// uses db.WithTx; tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service expands and commits bulk schedules.
type Service struct {
	shifts  shift.Repository
	auths   authorization.Repository
	auditor audit.Recorder
	runTx   TxRunner
	logger  zerolog.Logger
}

func NewService(shifts shift.Repository, auths authorization.Repository, auditor audit.Recorder, runTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{shifts: shifts, auths: auths, auditor: auditor, runTx: runTx, logger: logger}
}

// PreviewBulk computes the dates, conflicts, and unit consumption of a
// request without persisting anything.
func (s *Service) PreviewBulk(ctx context.Context, req BulkRequest) (*Preview, error) {
	p, err := req.parse()
	if err != nil {
		return nil, err
	}

	dates := GenerateDates(p.start, p.NumberOfWeeks, p.SelectedDays)
	out := &Preview{TotalHours: p.hoursPerShift * float64(len(dates))}
	for _, d := range dates {
		out.Dates = append(out.Dates, d.Format("2006-01-02"))
		start := At(d, p.startHour, p.startMinute)
		end := At(d, p.endHour, p.endMinute)
		conflicts, err := s.findConflicts(ctx, p.CaregiverID, d, start, end)
		if err != nil {
			return nil, err
		}
		out.Conflicts = append(out.Conflicts, conflicts...)
	}

	if err := s.projectUnits(ctx, p, len(dates), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) projectUnits(ctx context.Context, p *parsedRequest, shiftCount int, out *Preview) error {
	auth, err := s.auths.ActiveForClient(ctx, p.ClientID, p.start)
	if err != nil {
		return fmt.Errorf("loading authorization: %w", err)
	}
	if auth == nil {
		return nil
	}
	units, err := authorization.UnitsFor(auth.UnitType, p.hoursPerShift, shiftCount)
	if err != nil {
		return err
	}
	remaining := auth.RemainingUnits()
	sufficient := units <= remaining
	out.TotalUnitsConsumed = units
	out.UnitType = auth.UnitType
	out.RemainingUnits = &remaining
	out.SufficientUnits = &sufficient
	return nil
}

// CommitBulk creates the non-conflicting shifts of a request in one
// transaction. With SkipConflicts unset any conflict aborts the whole
// batch; with it set, conflicting dates are skipped and reported. One audit
// entry summarizes the batch.
func (s *Service) CommitBulk(ctx context.Context, req BulkRequest, actorID string, companyID uuid.UUID) (*Result, error) {
	p, err := req.parse()
	if err != nil {
		return nil, err
	}

	dates := GenerateDates(p.start, p.NumberOfWeeks, p.SelectedDays)
	res := &Result{}

	err = s.runTx(ctx, func(ctx context.Context) error {
		// Dates are processed in generated order so two concurrent bulk
		// requests for the same caregiver serialize on the same rows.
		for _, d := range dates {
			start := At(d, p.startHour, p.startMinute)
			end := At(d, p.endHour, p.endMinute)

			conflicts, err := s.findConflicts(ctx, p.CaregiverID, d, start, end)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				if !p.SkipConflicts {
					return fmt.Errorf("%w on %s", ErrConflict, d.Format("2006-01-02"))
				}
				res.Conflicts = append(res.Conflicts, conflicts...)
				res.SkippedDates = append(res.SkippedDates, d.Format("2006-01-02"))
				res.Skipped++
				continue
			}

			sh := &shift.Shift{
				CompanyID:      companyID,
				CaregiverID:    p.CaregiverID,
				ClientID:       p.ClientID,
				ScheduledStart: start,
				ScheduledEnd:   end,
				Status:         shift.StatusScheduled,
			}
			if err := s.shifts.Create(ctx, sh); err != nil {
				return err
			}
			res.Shifts = append(res.Shifts, sh)
			res.Created++
		}

		res.TotalHours = p.hoursPerShift * float64(res.Created)
		return s.consumeUnits(ctx, p, res)
	})
	if err != nil {
		return nil, err
	}

	s.auditBatch(ctx, actorID, p, res)
	return res, nil
}

func (s *Service) consumeUnits(ctx context.Context, p *parsedRequest, res *Result) error {
	auth, err := s.auths.ActiveForClient(ctx, p.ClientID, p.start)
	if err != nil {
		return fmt.Errorf("loading authorization: %w", err)
	}
	if auth == nil || res.Created == 0 {
		return nil
	}
	units, err := authorization.UnitsFor(auth.UnitType, p.hoursPerShift, res.Created)
	if err != nil {
		return err
	}
	res.TotalUnitsConsumed = units
	// Balance is advisory: scheduling past the authorized limit is allowed
	// and surfaced by the preview, not blocked here.
	return s.auths.AddUsedUnits(ctx, auth.ID, units)
}

func (s *Service) findConflicts(ctx context.Context, caregiverID uuid.UUID, date time.Time, start, end time.Time) ([]Conflict, error) {
	existing, err := s.shifts.FindOverlapping(ctx, caregiverID, start, end)
	if err != nil {
		return nil, err
	}
	var out []Conflict
	for _, e := range existing {
		out = append(out, Conflict{
			Date:          date.Format("2006-01-02"),
			ShiftID:       e.ID,
			ExistingStart: e.ScheduledStart,
			ExistingEnd:   e.ScheduledEnd,
		})
	}
	return out, nil
}

// auditBatch writes exactly one entry per bulk commit so the audit trail
// stays proportionate to the action, not its cardinality.
func (s *Service) auditBatch(ctx context.Context, actorID string, p *parsedRequest, res *Result) {
	ids := make([]string, len(res.Shifts))
	for i, sh := range res.Shifts {
		ids[i] = sh.ID.String()
	}
	err := s.auditor.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     "scheduling.bulk_create",
		EntityType: "client",
		EntityID:   p.ClientID.String(),
		Changes: map[string]any{
			"caregiver_id":  p.CaregiverID.String(),
			"start_date":    p.StartDate,
			"weeks":         p.NumberOfWeeks,
			"selected_days": p.SelectedDays,
			"created":       res.Created,
			"skipped":       res.Skipped,
			"shift_ids":     ids,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("bulk schedule audit write failed")
	}
}
