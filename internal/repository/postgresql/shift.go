package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type shiftRepository struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) shift.Repository {
	return &shiftRepository{db: db}
}

const templateColumns = `
	st.id, st.name, st.mode,
	to_char(st.start_time, 'HH24:MI'), to_char(st.end_time, 'HH24:MI'),
	st.unpaid_break_minutes, st.break_policy, to_char(st.break_start_time, 'HH24:MI'),
	st.grace_late_minutes, st.grace_early_minutes, st.rounding_rule, st.overtime_after_minutes,
	st.require_selfie, st.geofence, st.weekly_overrides, st.is_active,
	COALESCE((
		SELECT array_agg(std.department_id ORDER BY std.department_id)
		FROM shift_template_departments std
		WHERE std.shift_id = st.id
	), '{}'),
	st.created_at, st.updated_at
`

func scanTemplate(row pgx.Row) (shift.Template, error) {
	var (
		t                       shift.Template
		mode, breakPolicy       string
		start, end, breakStart  *string
		geofence, weeklyRawJSON []byte
	)
	err := row.Scan(
		&t.ID, &t.Name, &mode,
		&start, &end,
		&t.UnpaidBreakMinutes, &breakPolicy, &breakStart,
		&t.GraceLateMinutes, &t.GraceEarlyMinutes, &t.RoundingRule, &t.OvertimeAfterMinutes,
		&t.RequireSelfie, &geofence, &weeklyRawJSON, &t.IsActive,
		&t.DepartmentIDs,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return shift.Template{}, err
	}

	t.Mode = shift.Mode(mode)
	t.BreakPolicy = shift.BreakPolicy(breakPolicy)

	if t.StartTime, err = parseTimeOfDay(start); err != nil {
		return shift.Template{}, err
	}
	if t.EndTime, err = parseTimeOfDay(end); err != nil {
		return shift.Template{}, err
	}
	if t.BreakStartTime, err = parseTimeOfDay(breakStart); err != nil {
		return shift.Template{}, err
	}

	if len(geofence) > 0 && string(geofence) != "null" {
		var g shift.Geofence
		if err := json.Unmarshal(geofence, &g); err != nil {
			return shift.Template{}, fmt.Errorf("failed to unmarshal geofence: %w", err)
		}
		t.Geofence = &g
	}
	if len(weeklyRawJSON) > 0 && string(weeklyRawJSON) != "null" {
		if err := json.Unmarshal(weeklyRawJSON, &t.WeeklyOverrides); err != nil {
			return shift.Template{}, fmt.Errorf("failed to unmarshal weekly overrides of shift %s: %w", t.ID, err)
		}
	}

	return t, nil
}

func parseTimeOfDay(s *string) (*shift.TimeOfDay, error) {
	if s == nil {
		return nil, nil
	}
	t, err := shift.ParseTimeOfDay(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID implements shift.Repository.
func (r *shiftRepository) GetByID(ctx context.Context, id string) (shift.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + templateColumns + ` FROM shift_templates st WHERE st.id = $1`

	t, err := scanTemplate(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Template{}, shift.ErrShiftNotFound
		}
		return shift.Template{}, fmt.Errorf("failed to get shift template: %w", err)
	}
	return t, nil
}

// ListActiveByDepartment implements shift.Repository.
func (r *shiftRepository) ListActiveByDepartment(ctx context.Context, departmentID string) ([]shift.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + templateColumns + `
		FROM shift_templates st
		JOIN shift_template_departments d ON d.shift_id = st.id
		WHERE d.department_id = $1 AND st.is_active = true
		ORDER BY st.id
	`

	rows, err := q.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department shifts: %w", err)
	}
	defer rows.Close()

	var templates []shift.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetAssignment implements shift.Repository.
func (r *shiftRepository) GetAssignment(ctx context.Context, employeeID string, date time.Time) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, work_date, shift_id, is_holiday
		FROM shift_assignments
		WHERE employee_id = $1 AND work_date = $2
	`

	var a shift.Assignment
	err := q.QueryRow(ctx, query, employeeID, shift.DateOnly(date)).Scan(
		&a.ID, &a.EmployeeID, &a.WorkDate, &a.ShiftID, &a.IsHoliday,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrAssignmentNotFound
		}
		return shift.Assignment{}, fmt.Errorf("failed to get shift assignment: %w", err)
	}
	return a, nil
}

// GetEffectiveDefault implements shift.Repository.
func (r *shiftRepository) GetEffectiveDefault(ctx context.Context, employeeID string, date time.Time) (*shift.EmployeeDefault, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, effective_start_date, shift_id
		FROM employee_default_shifts
		WHERE employee_id = $1 AND effective_start_date <= $2
		ORDER BY effective_start_date DESC
		LIMIT 1
	`

	var d shift.EmployeeDefault
	err := q.QueryRow(ctx, query, employeeID, shift.DateOnly(date)).Scan(
		&d.ID, &d.EmployeeID, &d.EffectiveStartDate, &d.ShiftID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee default shift: %w", err)
	}
	return &d, nil
}

const departmentRuleColumns = `
	id, COALESCE(department_id, ''), COALESCE(department_slug, ''),
	default_shift_id, overrides, split_schedule
`

// GetDepartmentRule implements shift.Repository.
func (r *shiftRepository) GetDepartmentRule(ctx context.Context, departmentID string) (shift.DepartmentRule, error) {
	return r.getDepartmentRule(ctx, `department_id = $1`, departmentID)
}

// GetDepartmentRuleBySlug implements shift.Repository.
func (r *shiftRepository) GetDepartmentRuleBySlug(ctx context.Context, slug string) (shift.DepartmentRule, error) {
	return r.getDepartmentRule(ctx, `department_slug = $1`, slug)
}

func (r *shiftRepository) getDepartmentRule(ctx context.Context, where, arg string) (shift.DepartmentRule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + departmentRuleColumns + ` FROM department_shift_rules WHERE ` + where

	var (
		rule            shift.DepartmentRule
		overrides, split []byte
	)
	err := q.QueryRow(ctx, query, arg).Scan(
		&rule.ID, &rule.DepartmentID, &rule.DepartmentSlug,
		&rule.DefaultShiftID, &overrides, &split,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.DepartmentRule{}, shift.ErrDepartmentRuleNotFound
		}
		return shift.DepartmentRule{}, fmt.Errorf("failed to get department rule: %w", err)
	}

	if rule.Overrides, err = decodeDateRangeOverrides(overrides); err != nil {
		return shift.DepartmentRule{}, err
	}
	if rule.SplitSchedule, err = decodeSplitSchedule(split); err != nil {
		return shift.DepartmentRule{}, err
	}
	return rule, nil
}

// decodeDateRangeOverrides reads [{"start":"2025-01-01","end":"2025-01-31","shift_id":"..."}].
func decodeDateRangeOverrides(data []byte) ([]shift.DateRangeOverride, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw []struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		ShiftID string `json:"shift_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal department overrides: %w", err)
	}

	out := make([]shift.DateRangeOverride, 0, len(raw))
	for _, o := range raw {
		start, err := time.Parse("2006-01-02", o.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid override start %q: %w", o.Start, err)
		}
		end, err := time.Parse("2006-01-02", o.End)
		if err != nil {
			return nil, fmt.Errorf("invalid override end %q: %w", o.End, err)
		}
		out = append(out, shift.DateRangeOverride{Start: start, End: end, ShiftID: o.ShiftID})
	}
	return out, nil
}

// decodeSplitSchedule reads {"monday":[{"start":"08:00","end":"12:00"}, ...]}.
func decodeSplitSchedule(data []byte) (map[time.Weekday][]shift.TimeWindow, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw map[string][]shift.TimeWindow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal split schedule: %w", err)
	}

	out := make(map[time.Weekday][]shift.TimeWindow, len(raw))
	for name, windows := range raw {
		day, ok := shift.ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in split schedule", name)
		}
		out[day] = windows
	}
	return out, nil
}
