package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/compliance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
)

type AttendanceServiceImpl struct {
	db *database.DB
	attendance.SessionRepository
	attendance.EarlyLeaveRepository
	punch.Repository
	resolver  shift.Resolver
	directory employee.Directory
	guard     leave.Guard
	policy    policy.Provider
	gate      compliance.Gate
	sink      notification.Sink
	cfg       config.EngineConfig
	now       func() time.Time
}

func NewAttendanceService(
	db *database.DB,
	sessionRepository attendance.SessionRepository,
	earlyLeaveRepository attendance.EarlyLeaveRepository,
	punchRepository punch.Repository,
	resolver shift.Resolver,
	directory employee.Directory,
	guard leave.Guard,
	policyProvider policy.Provider,
	gate compliance.Gate,
	sink notification.Sink,
	cfg config.EngineConfig,
) attendance.AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		db:                   db,
		SessionRepository:    sessionRepository,
		EarlyLeaveRepository: earlyLeaveRepository,
		Repository:           punchRepository,
		resolver:             resolver,
		directory:            directory,
		guard:                guard,
		policy:               policyProvider,
		gate:                 gate,
		sink:                 sink,
		cfg:                  cfg,
		now:                  time.Now,
	}
}

// Recalculate implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Recalculate(ctx context.Context, employeeID string, workDate time.Time) (attendance.RecalcResult, error) {
	date := shift.DateOnly(workDate)

	var (
		prev    *attendance.Session
		saved   attendance.Session
		written bool
	)
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		prev, err = s.SessionRepository.GetByEmployeeAndDate(ctx, employeeID, date)
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		if prev != nil && prev.Locked {
			return attendance.ErrSessionLocked
		}

		session, err := s.compute(ctx, employeeID, date)
		if err != nil {
			return err
		}

		if prev != nil && prev.SameOutcome(session) {
			saved = *prev
			return nil
		}

		session.LastRecalcAt = s.now().UTC()
		saved, err = s.SessionRepository.Upsert(ctx, session)
		if err != nil {
			return err
		}
		written = true
		return nil
	})
	if errors.Is(err, attendance.ErrSessionLocked) {
		slog.Info("Skipping recalculation of locked session",
			"employee_id", employeeID, "work_date", date.Format("2006-01-02"))
		if prev != nil {
			return attendance.RecalcResult{Session: attendance.NewSessionResponse(*prev)}, err
		}
		return attendance.RecalcResult{}, err
	}
	if err != nil {
		return attendance.RecalcResult{}, err
	}

	result := attendance.RecalcResult{
		Session: attendance.NewSessionResponse(saved),
		Written: written,
	}
	if !written {
		return result, nil
	}

	var prevFlags attendance.Flags
	if prev != nil {
		prevFlags = prev.Flags
	}
	added := saved.Flags.Added(prevFlags)
	result.NewFlags = added.Strings()

	s.fireSideEffects(ctx, saved, added)

	return result, nil
}

// compute runs the engine for one employee and date without persisting.
func (s *AttendanceServiceImpl) compute(ctx context.Context, employeeID string, date time.Time) (attendance.Session, error) {
	loc := s.cfg.Location

	blocked, err := s.guard.IsBlocked(ctx, employeeID, date)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to check leave: %w", err)
	}
	if blocked {
		return zeroSession(employeeID, date, attendance.StatusOnLeave, "leave"), nil
	}

	resolved, err := s.resolver.Resolve(ctx, employeeID, date)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to resolve shift: %w", err)
	}
	if resolved != nil && resolved.IsHoliday {
		return zeroSession(employeeID, date, attendance.StatusHoliday, "holiday_assignment"), nil
	}

	companyHoliday, err := s.guard.IsCompanyHoliday(ctx, date)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to check company holiday: %w", err)
	}

	var tmpl *shift.Template
	totalHours := false
	if resolved != nil {
		tmpl = &resolved.Template
		totalHours = resolved.Kind == shift.KindTotalHours
		if !totalHours {
			totalHours, err = s.policy.IsTotalHoursMode(ctx, employeeID, tmpl)
			if err != nil {
				return attendance.Session{}, fmt.Errorf("failed to get policy mode: %w", err)
			}
			if totalHours {
				r := *resolved
				r.Kind = shift.KindTotalHours
				resolved = &r
				tmpl = &resolved.Template
			}
		}
	}

	segments := BuildSegments(resolved, date, loc)

	// the nominal interval bounds the punch window and the total-hours end check
	windowSegments := segments
	var nominalEnd *time.Time
	if resolved != nil && len(segments) == 0 {
		if nominal, ok := NominalSegment(resolved, date, loc); ok {
			windowSegments = []attendance.Segment{nominal}
			end := nominal.EndUTC
			nominalEnd = &end
		}
	}

	targetMinutes := 0
	var policyBreak policy.BreakSettings
	if totalHours {
		hours, err := s.policy.GetTargetHours(ctx, employeeID, tmpl)
		if err != nil {
			return attendance.Session{}, fmt.Errorf("failed to get target hours: %w", err)
		}
		targetMinutes = TargetMinutes(hours)
		if targetMinutes <= 0 {
			targetMinutes = s.cfg.DefaultTargetMinutes
		}
		if !tmpl.HasMandatoryBreak() {
			policyBreak, err = s.policy.GetBreakSettings(ctx, employeeID, tmpl)
			if err != nil {
				return attendance.Session{}, fmt.Errorf("failed to get policy break: %w", err)
			}
		}
	}

	from, to := DayWindow(date, loc, windowSegments, s.cfg.OvernightWindow)
	// punches still inside yesterday's overnight window belong to yesterday
	_, carryEnd, err := s.previousNight(ctx, employeeID, date)
	if err != nil {
		return attendance.Session{}, err
	}
	if carryEnd.After(from) {
		from = carryEnd
	}
	punches, err := s.Repository.ListByWindow(ctx, employeeID, from, to)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to list punches: %w", err)
	}

	red := ReducePunches(punches)

	graceLate, graceEarly := 0, 0
	if tmpl != nil {
		graceLate, graceEarly = tmpl.GraceLateMinutes, tmpl.GraceEarlyMinutes
	}
	ev := EvaluateSegments(segments, red, graceLate, graceEarly)

	br := AdjustBreaks(BreakInput{
		Template:       tmpl,
		TotalHours:     totalHours,
		Punches:        punches,
		Reduction:      red,
		ScheduledTotal: ev.ScheduledTotal,
		TargetMinutes:  targetMinutes,
		PolicyBreak:    policyBreak,
	})

	status, flags := Classify(ClassifyInput{
		TotalHours:     totalHours,
		SegmentCount:   len(segments),
		Flags:          ev.Flags.Union(br.Flags),
		Net:            br.Net,
		WorkedTotal:    red.WorkedMinutes,
		PunchCount:     red.PunchCount,
		TargetMinutes:  targetMinutes,
		LastOut:        red.LastOut,
		NominalEnd:     nominalEnd,
		CompanyHoliday: companyHoliday,
	})

	session := attendance.Session{
		EmployeeID:        employeeID,
		WorkDate:          date,
		InTime:            red.FirstIn,
		OutTime:           red.LastOut,
		NetMinutes:        red.WorkedMinutes,
		RoundedNetMinutes: br.RoundedNet,
		BreakMinutes:      br.BreakDeduction,
		BreakDelayMinutes: br.BreakDelay,
		NoBreakTaken:      br.NoBreakTaken,
		OvertimeMinutes:   br.Overtime,
		Status:            status,
		Flags:             flags,
	}
	if !totalHours {
		session.LateMinutes = ev.LateMinutes
		session.EarlyLeaveMinutes = ev.EarlyMinutes
	} else if status == attendance.StatusLeftEarly {
		session.EarlyLeaveMinutes = roundMinutes(nominalEnd.Sub(*red.LastOut))
	}

	session.CalcMeta = s.calcMeta(ctx, employeeID, resolved, totalHours, ev, br, red, targetMinutes)
	return session, nil
}

func (s *AttendanceServiceImpl) calcMeta(
	ctx context.Context,
	employeeID string,
	resolved *shift.Resolved,
	totalHours bool,
	ev Evaluation,
	br BreakResult,
	red Reduction,
	targetMinutes int,
) attendance.CalcMeta {
	meta := attendance.CalcMeta{
		Reason:         "computed",
		ScheduledTotal: ev.ScheduledTotal,
		TargetMinutes:  targetMinutes,
		BreakRule:      br.Rule,
		Counters: attendance.Counters{
			Punches:         red.PunchCount,
			InOutPunches:    red.InOutPunchCount,
			BreakPunches:    red.BreakPunchCount,
			WorkedIntervals: len(red.Worked),
			BreakIntervals:  len(red.Breaks),
		},
	}

	if resolved == nil {
		meta.Reason = "no_shift"
	} else {
		meta.ShiftID = resolved.Template.ID
		meta.ShiftSource = string(resolved.Source)
		meta.Virtual = resolved.Virtual
		meta.GraceLate = resolved.Template.GraceLateMinutes
		meta.GraceEarly = resolved.Template.GraceEarlyMinutes
		if resolved.Template.BreakStartTime != nil {
			meta.BreakStartTime = resolved.Template.BreakStartTime.String()
		}
		meta.DepartmentID = resolved.DepartmentID
	}
	meta.Mode = shift.KindFixed.String()
	if totalHours {
		meta.Mode = shift.KindTotalHours.String()
	}

	if meta.DepartmentID == "" {
		if dept, err := s.directory.GetDepartment(ctx, employeeID); err == nil && dept != nil {
			meta.DepartmentID = dept.ID
		}
	}

	for _, d := range ev.Segments {
		meta.Segments = append(meta.Segments, attendance.SegmentMeta{
			Start:        d.Segment.StartUTC.Format(time.RFC3339),
			End:          d.Segment.EndUTC.Format(time.RFC3339),
			Minutes:      d.Segment.Minutes,
			Overlap:      d.OverlapMinutes,
			LateMinutes:  d.LateMinutes,
			EarlyMinutes: d.EarlyMinutes,
			Missed:       d.Missed,
		})
	}
	return meta
}

func zeroSession(employeeID string, date time.Time, status attendance.Status, reason string) attendance.Session {
	return attendance.Session{
		EmployeeID: employeeID,
		WorkDate:   date,
		Status:     status,
		CalcMeta:   attendance.CalcMeta{Reason: reason},
	}
}

// fireSideEffects emits one notification per newly detected condition and opens
// an early-leave request for a new left_early. Failures are logged only.
func (s *AttendanceServiceImpl) fireSideEffects(ctx context.Context, session attendance.Session, added attendance.Flags) {
	for _, flag := range attendance.NotifiableFlags {
		if !added.Has(flag) {
			continue
		}
		event, payload := notificationFor(flag, session)
		if err := s.sink.Emit(ctx, event, session.EmployeeID, payload); err != nil {
			slog.Error("Failed to emit attendance notification",
				"event", event, "employee_id", session.EmployeeID, "error", err)
		}
	}

	if added.Has(attendance.FlagLeftEarly) {
		if err := s.createEarlyLeaveRequest(ctx, session); err != nil {
			slog.Error("Failed to create early leave request",
				"employee_id", session.EmployeeID,
				"work_date", session.WorkDate.Format("2006-01-02"),
				"error", err)
		}
	}
}

func notificationFor(flag attendance.Flag, session attendance.Session) (string, map[string]interface{}) {
	payload := map[string]interface{}{
		"session_id": session.ID,
		"work_date":  session.WorkDate.Format("2006-01-02"),
		"status":     string(session.Status),
		"shift_id":   session.CalcMeta.ShiftID,
	}

	switch flag {
	case attendance.FlagLate:
		payload["late_minutes"] = session.LateMinutes
		return notification.EventLate, payload
	case attendance.FlagLeftEarly:
		payload["early_leave_minutes"] = session.EarlyLeaveMinutes
		return notification.EventLeftEarly, payload
	case attendance.FlagNoBreakTaken:
		return notification.EventNoBreakTaken, payload
	default:
		payload["break_delay_minutes"] = session.BreakDelayMinutes
		if session.CalcMeta.BreakStartTime != "" {
			payload["break_start_time"] = session.CalcMeta.BreakStartTime
		}
		return notification.EventBreakDelay, payload
	}
}

// shortfall is the scheduled early-leave minutes in fixed mode, or the target
// shortfall in total-hours mode.
func shortfall(session attendance.Session) int {
	if session.CalcMeta.Mode == shift.KindTotalHours.String() {
		return max(0, session.CalcMeta.TargetMinutes-session.RoundedNetMinutes)
	}
	return session.EarlyLeaveMinutes
}

func (s *AttendanceServiceImpl) createEarlyLeaveRequest(ctx context.Context, session attendance.Session) error {
	minutes := shortfall(session)
	if minutes <= 0 {
		return nil
	}

	managerID, err := s.directory.GetManagerID(ctx, session.EmployeeID)
	if err != nil {
		slog.Warn("Could not resolve manager for early leave request",
			"employee_id", session.EmployeeID, "error", err)
		managerID = nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate id: %w", err)
	}

	req := attendance.EarlyLeaveRequest{
		ID:               id.String(),
		EmployeeID:       session.EmployeeID,
		SessionID:        session.ID,
		RequestDate:      session.WorkDate,
		ShortfallMinutes: minutes,
		ActualLeaveTime:  session.OutTime,
		Reason:           fmt.Sprintf("Auto-generated: left %d minutes short of schedule", minutes),
		Status:           attendance.EarlyLeavePending,
		ManagerID:        managerID,
		CreatedAt:        s.now().UTC(),
	}

	created, err := s.EarlyLeaveRepository.CreateIfNotExists(ctx, req)
	if err != nil {
		return err
	}
	if created {
		slog.Info("Early leave request created",
			"employee_id", session.EmployeeID,
			"work_date", session.WorkDate.Format("2006-01-02"),
			"shortfall_minutes", minutes)
	}
	return nil
}

// GetSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetSession(ctx context.Context, employeeID string, workDate time.Time) (attendance.Session, error) {
	session, err := s.SessionRepository.GetByEmployeeAndDate(ctx, employeeID, shift.DateOnly(workDate))
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return *session, nil
}

// ListSessions implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListSessions(ctx context.Context, filter attendance.SessionFilter) ([]attendance.Session, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	sessions, err := s.SessionRepository.ListByEmployeeAndRange(ctx, filter.EmployeeID, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// inTx runs fn inside a database transaction when a database is configured.
func (s *AttendanceServiceImpl) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return postgresql.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, "tx", tx))
	})
}
