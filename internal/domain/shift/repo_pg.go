package shift

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/domain/evv"
	"github.com/carelog/carelog/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed shift repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const shiftCols = `id, company_id, caregiver_id, client_id, scheduled_start, scheduled_end,
	actual_start, actual_end, status, check_in_location, check_out_location, notes,
	created_at, updated_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	var checkIn, checkOut []byte
	err := row.Scan(&s.ID, &s.CompanyID, &s.CaregiverID, &s.ClientID, &s.ScheduledStart,
		&s.ScheduledEnd, &s.ActualStart, &s.ActualEnd, &s.Status, &checkIn, &checkOut,
		&s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(checkIn) > 0 {
		var loc evv.LocationData
		if err := json.Unmarshal(checkIn, &loc); err == nil {
			s.CheckInLocation = &loc
		}
	}
	if len(checkOut) > 0 {
		var loc evv.LocationData
		if err := json.Unmarshal(checkOut, &loc); err == nil {
			s.CheckOutLocation = &loc
		}
	}
	return &s, nil
}

func marshalLocation(loc *evv.LocationData) ([]byte, error) {
	if loc == nil {
		return nil, nil
	}
	return json.Marshal(loc)
}

func (r *repoPG) Create(ctx context.Context, s *Shift) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusScheduled
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shifts (id, company_id, caregiver_id, client_id, scheduled_start,
			scheduled_end, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.CompanyID, s.CaregiverID, s.ClientID, s.ScheduledStart,
		s.ScheduledEnd, s.Status, s.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return scanShift(r.conn(ctx).QueryRow(ctx, `SELECT `+shiftCols+` FROM shifts WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Shift) error {
	checkIn, err := marshalLocation(s.CheckInLocation)
	if err != nil {
		return err
	}
	checkOut, err := marshalLocation(s.CheckOutLocation)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE shifts SET scheduled_start=$2, scheduled_end=$3, actual_start=$4, actual_end=$5,
			status=$6, check_in_location=$7, check_out_location=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd,
		s.Status, checkIn, checkOut, s.Notes)
	return err
}

func (r *repoPG) list(ctx context.Context, where string, arg uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM shifts WHERE ` + where + ` = $1 AND scheduled_start >= $2 AND scheduled_start < $3`
	if err := r.conn(ctx).QueryRow(ctx, countQuery, arg, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+shiftCols+` FROM shifts WHERE `+where+` = $1 AND scheduled_start >= $2 AND scheduled_start < $3
		 ORDER BY scheduled_start LIMIT $4 OFFSET $5`,
		arg, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *repoPG) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error) {
	return r.list(ctx, "caregiver_id", caregiverID, from, to, limit, offset)
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, from, to time.Time, limit, offset int) ([]*Shift, int, error) {
	return r.list(ctx, "client_id", clientID, from, to, limit, offset)
}

func (r *repoPG) FindOverlapping(ctx context.Context, caregiverID uuid.UUID, start, end time.Time) ([]*Shift, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+shiftCols+` FROM shifts
		WHERE caregiver_id = $1
		  AND status IN ('SCHEDULED', 'IN_PROGRESS')
		  AND scheduled_start < $3 AND scheduled_end > $2
		ORDER BY scheduled_start`,
		caregiverID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

type attendanceRepoPG struct{ pool *pgxpool.Pool }

// NewAttendanceRepoPG creates a Postgres-backed attendance repository.
func NewAttendanceRepoPG(pool *pgxpool.Pool) AttendanceRepository {
	return &attendanceRepoPG{pool: pool}
}

func (r *attendanceRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const attendanceCols = `id, shift_id, date, check_in_time, check_out_time, created_at, updated_at`

func scanAttendance(row pgx.Row) (*Attendance, error) {
	var a Attendance
	err := row.Scan(&a.ID, &a.ShiftID, &a.Date, &a.CheckInTime, &a.CheckOutTime, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *attendanceRepoPG) GetByShiftAndDate(ctx context.Context, shiftID uuid.UUID, date time.Time) (*Attendance, error) {
	return scanAttendance(r.conn(ctx).QueryRow(ctx,
		`SELECT `+attendanceCols+` FROM shift_attendance WHERE shift_id = $1 AND date = $2`,
		shiftID, DayOf(date)))
}

func (r *attendanceRepoPG) InsertCheckIn(ctx context.Context, a *Attendance) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Date = DayOf(a.Date)
	// ON CONFLICT DO NOTHING makes concurrent duplicate check-ins lose
	// cleanly instead of overwriting the first check_in_time.
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO shift_attendance (id, shift_id, date, check_in_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shift_id, date) DO NOTHING`,
		a.ID, a.ShiftID, a.Date, a.CheckInTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCheckedIn
	}
	return nil
}

func (r *attendanceRepoPG) SetCheckOut(ctx context.Context, shiftID uuid.UUID, date, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE shift_attendance SET check_out_time = $3, updated_at = NOW()
		WHERE shift_id = $1 AND date = $2 AND check_in_time IS NOT NULL AND check_out_time IS NULL`,
		shiftID, DayOf(date), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotCheckedIn
	}
	return nil
}

func (r *attendanceRepoPG) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*Attendance, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+attendanceCols+` FROM shift_attendance WHERE shift_id = $1 ORDER BY date`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Attendance
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.ID, &a.ShiftID, &a.Date, &a.CheckInTime, &a.CheckOutTime, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, nil
}
