package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) attendance.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `
	id, employee_id, work_date, in_time, out_time,
	net_minutes, rounded_net_minutes, break_minutes, break_delay_minutes, no_break_taken,
	overtime_minutes, late_minutes, early_leave_minutes,
	status, flags, calc_meta, last_recalc_at, locked, created_at, updated_at
`

func scanSession(row pgx.Row) (attendance.Session, error) {
	var (
		s        attendance.Session
		status   string
		flags    []string
		calcMeta []byte
	)
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.WorkDate, &s.InTime, &s.OutTime,
		&s.NetMinutes, &s.RoundedNetMinutes, &s.BreakMinutes, &s.BreakDelayMinutes, &s.NoBreakTaken,
		&s.OvertimeMinutes, &s.LateMinutes, &s.EarlyLeaveMinutes,
		&status, &flags, &calcMeta, &s.LastRecalcAt, &s.Locked, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return attendance.Session{}, err
	}

	s.Status = attendance.Status(status)
	for _, f := range flags {
		s.Flags = s.Flags.With(attendance.Flag(f))
	}
	if len(calcMeta) > 0 {
		if err := json.Unmarshal(calcMeta, &s.CalcMeta); err != nil {
			return attendance.Session{}, fmt.Errorf("failed to unmarshal calc meta: %w", err)
		}
	}
	return s, nil
}

// GetByEmployeeAndDate implements attendance.SessionRepository.
func (r *sessionRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time) (*attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE employee_id = $1 AND work_date = $2
	`

	s, err := scanSession(q.QueryRow(ctx, query, employeeID, workDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance session: %w", err)
	}
	return &s, nil
}

// Upsert implements attendance.SessionRepository. The conflict update is
// guarded by NOT locked, so a closed period returns no row.
func (r *sessionRepository) Upsert(ctx context.Context, session attendance.Session) (attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	if session.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Session{}, fmt.Errorf("failed to generate session id: %w", err)
		}
		session.ID = id.String()
	}

	calcMeta, err := json.Marshal(session.CalcMeta)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to marshal calc meta: %w", err)
	}
	flags := session.Flags.Strings()

	query := `
		INSERT INTO attendance_sessions (
			id, employee_id, work_date, in_time, out_time,
			net_minutes, rounded_net_minutes, break_minutes, break_delay_minutes, no_break_taken,
			overtime_minutes, late_minutes, early_leave_minutes,
			status, flags, calc_meta, last_recalc_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (employee_id, work_date) DO UPDATE SET
			in_time = EXCLUDED.in_time,
			out_time = EXCLUDED.out_time,
			net_minutes = EXCLUDED.net_minutes,
			rounded_net_minutes = EXCLUDED.rounded_net_minutes,
			break_minutes = EXCLUDED.break_minutes,
			break_delay_minutes = EXCLUDED.break_delay_minutes,
			no_break_taken = EXCLUDED.no_break_taken,
			overtime_minutes = EXCLUDED.overtime_minutes,
			late_minutes = EXCLUDED.late_minutes,
			early_leave_minutes = EXCLUDED.early_leave_minutes,
			status = EXCLUDED.status,
			flags = EXCLUDED.flags,
			calc_meta = EXCLUDED.calc_meta,
			last_recalc_at = EXCLUDED.last_recalc_at,
			updated_at = NOW()
		WHERE attendance_sessions.locked = false
		RETURNING ` + sessionColumns

	saved, err := scanSession(q.QueryRow(ctx, query,
		session.ID,
		session.EmployeeID,
		session.WorkDate,
		session.InTime,
		session.OutTime,
		session.NetMinutes,
		session.RoundedNetMinutes,
		session.BreakMinutes,
		session.BreakDelayMinutes,
		session.NoBreakTaken,
		session.OvertimeMinutes,
		session.LateMinutes,
		session.EarlyLeaveMinutes,
		string(session.Status),
		flags,
		calcMeta,
		session.LastRecalcAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrSessionLocked
		}
		return attendance.Session{}, fmt.Errorf("failed to upsert attendance session: %w", err)
	}
	return saved, nil
}

// ListByEmployeeAndRange implements attendance.SessionRepository.
func (r *sessionRepository) ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + sessionColumns + `
		FROM attendance_sessions
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance sessions: %w", err)
	}
	defer rows.Close()

	var sessions []attendance.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type earlyLeaveRepository struct {
	db *database.DB
}

func NewEarlyLeaveRepository(db *database.DB) attendance.EarlyLeaveRepository {
	return &earlyLeaveRepository{db: db}
}

// CreateIfNotExists relies on the partial unique index over open requests.
func (r *earlyLeaveRepository) CreateIfNotExists(ctx context.Context, req attendance.EarlyLeaveRequest) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO early_leave_requests (
			id, employee_id, session_id, request_date, shortfall_minutes,
			actual_leave_time, reason, status, manager_id, created_at
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (employee_id, request_date) WHERE status IN ('pending', 'approved') DO NOTHING
	`

	tag, err := q.Exec(ctx, query,
		req.ID,
		req.EmployeeID,
		req.SessionID,
		req.RequestDate,
		req.ShortfallMinutes,
		req.ActualLeaveTime,
		req.Reason,
		string(req.Status),
		req.ManagerID,
		req.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create early leave request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
