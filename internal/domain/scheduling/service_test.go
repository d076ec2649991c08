package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/domain/authorization"
	"github.com/carelog/carelog/internal/domain/shift"
	"github.com/carelog/carelog/internal/platform/audit"
)

// -- in-memory repositories --

type memShiftRepo struct {
	shifts map[uuid.UUID]*shift.Shift
}

func newMemShiftRepo() *memShiftRepo {
	return &memShiftRepo{shifts: make(map[uuid.UUID]*shift.Shift)}
}

func (r *memShiftRepo) Create(_ context.Context, s *shift.Shift) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.shifts[s.ID] = &cp
	return nil
}

func (r *memShiftRepo) GetByID(_ context.Context, id uuid.UUID) (*shift.Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, shift.ErrNotFound
	}
	return s, nil
}

func (r *memShiftRepo) Update(_ context.Context, s *shift.Shift) error {
	cp := *s
	r.shifts[s.ID] = &cp
	return nil
}

func (r *memShiftRepo) ListByCaregiver(_ context.Context, _ uuid.UUID, _, _ time.Time, _, _ int) ([]*shift.Shift, int, error) {
	return nil, 0, nil
}

func (r *memShiftRepo) ListByClient(_ context.Context, _ uuid.UUID, _, _ time.Time, _, _ int) ([]*shift.Shift, int, error) {
	return nil, 0, nil
}

func (r *memShiftRepo) FindOverlapping(_ context.Context, caregiverID uuid.UUID, start, end time.Time) ([]*shift.Shift, error) {
	var out []*shift.Shift
	for _, s := range r.shifts {
		if s.CaregiverID != caregiverID {
			continue
		}
		if s.Status != shift.StatusScheduled && s.Status != shift.StatusInProgress {
			continue
		}
		if Overlaps(start, end, s.ScheduledStart, s.ScheduledEnd) {
			out = append(out, s)
		}
	}
	return out, nil
}

// snapshot/restore emulate transactional rollback for the passthrough runner.
func (r *memShiftRepo) snapshot() map[uuid.UUID]*shift.Shift {
	cp := make(map[uuid.UUID]*shift.Shift, len(r.shifts))
	for k, v := range r.shifts {
		s := *v
		cp[k] = &s
	}
	return cp
}

type memAuthRepo struct {
	auth *authorization.Authorization
}

func (r *memAuthRepo) Create(_ context.Context, a *authorization.Authorization) error {
	r.auth = a
	return nil
}

func (r *memAuthRepo) GetByID(_ context.Context, _ uuid.UUID) (*authorization.Authorization, error) {
	return r.auth, nil
}

func (r *memAuthRepo) Update(_ context.Context, a *authorization.Authorization) error {
	r.auth = a
	return nil
}

func (r *memAuthRepo) ActiveForClient(_ context.Context, clientID uuid.UUID, asOf time.Time) (*authorization.Authorization, error) {
	if r.auth == nil || r.auth.ClientID != clientID || !r.auth.Covers(asOf) {
		return nil, nil
	}
	return r.auth, nil
}

func (r *memAuthRepo) AddUsedUnits(_ context.Context, id uuid.UUID, units float64) error {
	if r.auth != nil && r.auth.ID == id {
		r.auth.UsedUnits += units
	}
	return nil
}

func (r *memAuthRepo) ListByClient(_ context.Context, _ uuid.UUID, _, _ int) ([]*authorization.Authorization, int, error) {
	return nil, 0, nil
}

// -- fixture --

type schedFixture struct {
	svc         *Service
	shifts      *memShiftRepo
	auths       *memAuthRepo
	auditor     *audit.MemRecorder
	clientID    uuid.UUID
	caregiverID uuid.UUID
	companyID   uuid.UUID
}

func newSchedFixture() *schedFixture {
	fx := &schedFixture{
		shifts:      newMemShiftRepo(),
		auths:       &memAuthRepo{},
		auditor:     &audit.MemRecorder{},
		clientID:    uuid.New(),
		caregiverID: uuid.New(),
		companyID:   uuid.New(),
	}
	// Passthrough transaction runner that restores the shift store when fn
	// fails, matching real rollback semantics.
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		snap := fx.shifts.snapshot()
		if err := fn(ctx); err != nil {
			fx.shifts.shifts = snap
			return err
		}
		return nil
	}
	fx.svc = NewService(fx.shifts, fx.auths, fx.auditor, runTx, zerolog.Nop())
	return fx
}

func (fx *schedFixture) request() BulkRequest {
	return BulkRequest{
		ClientID:      fx.clientID,
		CaregiverID:   fx.caregiverID,
		StartDate:     "2024-01-01", // a Monday
		NumberOfWeeks: 2,
		SelectedDays:  []int{1, 3},
		StartTime:     "09:00",
		EndTime:       "13:00",
	}
}

func (fx *schedFixture) seedShift(start, end time.Time) {
	_ = fx.shifts.Create(context.Background(), &shift.Shift{
		CompanyID:      fx.companyID,
		CaregiverID:    fx.caregiverID,
		ClientID:       fx.clientID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Status:         shift.StatusScheduled,
	})
}

// -- tests --

func TestCommitBulk_CreatesAllDates(t *testing.T) {
	fx := newSchedFixture()
	res, err := fx.svc.CommitBulk(context.Background(), fx.request(), "scheduler-1", fx.companyID)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if res.Created != 4 || res.Skipped != 0 {
		t.Errorf("created=%d skipped=%d, want 4/0", res.Created, res.Skipped)
	}
	if res.TotalHours != 16 {
		t.Errorf("totalHours = %v, want 16", res.TotalHours)
	}
	wantStarts := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	for i, sh := range res.Shifts {
		if !sh.ScheduledStart.Equal(wantStarts[i]) {
			t.Errorf("shift[%d] start = %v, want %v", i, sh.ScheduledStart, wantStarts[i])
		}
		if sh.Status != shift.StatusScheduled {
			t.Errorf("shift[%d] status = %s", i, sh.Status)
		}
	}
}

func TestCommitBulk_ConflictAbortsWholeBatch(t *testing.T) {
	fx := newSchedFixture()
	// Existing shift on Jan 8 overlapping the candidate window.
	fx.seedShift(
		time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 16, 0, 0, 0, time.UTC),
	)

	_, err := fx.svc.CommitBulk(context.Background(), fx.request(), "scheduler-1", fx.companyID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if !strings.Contains(err.Error(), "2024-01-08") {
		t.Errorf("error should name the conflicting date: %v", err)
	}
	// All-or-nothing: only the pre-existing shift remains.
	if len(fx.shifts.shifts) != 1 {
		t.Errorf("shift count after abort = %d, want 1", len(fx.shifts.shifts))
	}
}

func TestCommitBulk_SkipConflicts(t *testing.T) {
	fx := newSchedFixture()
	fx.seedShift(
		time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 16, 0, 0, 0, time.UTC),
	)

	req := fx.request()
	req.SkipConflicts = true
	res, err := fx.svc.CommitBulk(context.Background(), req, "scheduler-1", fx.companyID)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if res.Created != 3 || res.Skipped != 1 {
		t.Errorf("created=%d skipped=%d, want 3/1", res.Created, res.Skipped)
	}
	if len(res.SkippedDates) != 1 || res.SkippedDates[0] != "2024-01-08" {
		t.Errorf("skippedDates = %v", res.SkippedDates)
	}
	if len(res.Conflicts) != 1 {
		t.Errorf("conflicts = %v", res.Conflicts)
	}
}

func TestCommitBulk_BoundaryTouchIsNotConflict(t *testing.T) {
	fx := newSchedFixture()
	// Existing shift ends exactly when candidates begin.
	fx.seedShift(
		time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	)

	res, err := fx.svc.CommitBulk(context.Background(), fx.request(), "scheduler-1", fx.companyID)
	if err != nil {
		t.Fatalf("touching boundary treated as conflict: %v", err)
	}
	if res.Created != 4 {
		t.Errorf("created = %d, want 4", res.Created)
	}
}

func TestCommitBulk_ConsumesAuthorizedUnits(t *testing.T) {
	fx := newSchedFixture()
	fx.auths.auth = &authorization.Authorization{
		ID:              uuid.New(),
		ClientID:        fx.clientID,
		CompanyID:       fx.companyID,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		AuthorizedUnits: 100,
		UnitType:        authorization.UnitQuarterHourly,
		Status:          authorization.StatusActive,
	}

	res, err := fx.svc.CommitBulk(context.Background(), fx.request(), "scheduler-1", fx.companyID)
	if err != nil {
		t.Fatal(err)
	}
	// 4 hours x 4 quarter units x 4 shifts.
	if res.TotalUnitsConsumed != 64 {
		t.Errorf("units = %v, want 64", res.TotalUnitsConsumed)
	}
	if fx.auths.auth.UsedUnits != 64 {
		t.Errorf("used_units = %v, want 64", fx.auths.auth.UsedUnits)
	}
}

func TestCommitBulk_OneAuditEntryPerBatch(t *testing.T) {
	fx := newSchedFixture()
	if _, err := fx.svc.CommitBulk(context.Background(), fx.request(), "scheduler-1", fx.companyID); err != nil {
		t.Fatal(err)
	}
	if len(fx.auditor.Entries) != 1 {
		t.Fatalf("audit entries = %d, want exactly 1 per batch", len(fx.auditor.Entries))
	}
	e := fx.auditor.Entries[0]
	if e.Action != "scheduling.bulk_create" {
		t.Errorf("action = %s", e.Action)
	}
	if e.Changes["created"] != 4 {
		t.Errorf("changes = %+v", e.Changes)
	}
}

func TestPreviewBulk_DoesNotPersist(t *testing.T) {
	fx := newSchedFixture()
	fx.auths.auth = &authorization.Authorization{
		ID:              uuid.New(),
		ClientID:        fx.clientID,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		AuthorizedUnits: 10,
		UnitType:        authorization.UnitHourly,
		Status:          authorization.StatusActive,
	}

	preview, err := fx.svc.PreviewBulk(context.Background(), fx.request())
	if err != nil {
		t.Fatal(err)
	}
	if len(fx.shifts.shifts) != 0 {
		t.Error("preview must not create shifts")
	}
	if fx.auths.auth.UsedUnits != 0 {
		t.Error("preview must not consume units")
	}
	if len(preview.Dates) != 4 {
		t.Errorf("dates = %v", preview.Dates)
	}
	// 16 hours against a balance of 10: flagged, not blocked.
	if preview.TotalUnitsConsumed != 16 {
		t.Errorf("units = %v, want 16", preview.TotalUnitsConsumed)
	}
	if preview.SufficientUnits == nil || *preview.SufficientUnits {
		t.Error("expected insufficient units flag")
	}
}

func TestPreviewBulk_FlagsConflicts(t *testing.T) {
	fx := newSchedFixture()
	fx.seedShift(
		time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC),
	)
	preview, err := fx.svc.PreviewBulk(context.Background(), fx.request())
	if err != nil {
		t.Fatal(err)
	}
	if len(preview.Conflicts) != 1 || preview.Conflicts[0].Date != "2024-01-03" {
		t.Errorf("conflicts = %+v", preview.Conflicts)
	}
}

func TestBulkRequest_Validation(t *testing.T) {
	fx := newSchedFixture()
	cases := []struct {
		name   string
		mutate func(*BulkRequest)
	}{
		{"zero weeks", func(r *BulkRequest) { r.NumberOfWeeks = 0 }},
		{"too many weeks", func(r *BulkRequest) { r.NumberOfWeeks = 13 }},
		{"no days", func(r *BulkRequest) { r.SelectedDays = nil }},
		{"day out of range", func(r *BulkRequest) { r.SelectedDays = []int{7} }},
		{"duplicate day", func(r *BulkRequest) { r.SelectedDays = []int{1, 1} }},
		{"bad date", func(r *BulkRequest) { r.StartDate = "01/01/2024" }},
		{"bad time", func(r *BulkRequest) { r.StartTime = "nine" }},
		{"end before start", func(r *BulkRequest) { r.StartTime = "13:00"; r.EndTime = "09:00" }},
		{"missing client", func(r *BulkRequest) { r.ClientID = uuid.Nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := fx.request()
			tc.mutate(&req)
			if _, err := fx.svc.PreviewBulk(context.Background(), req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
