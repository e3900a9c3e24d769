package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/compliance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/utils"
	complianceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/compliance"
)

// RecordPunch implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordPunch(ctx context.Context, req attendance.RecordPunchRequest) (attendance.RecordPunchResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordPunchResponse{}, err
	}

	punchedAt := req.ParsedAt
	if punchedAt.IsZero() {
		punchedAt = s.now().UTC()
	}
	punchType := punch.Type(req.Type)
	source := punch.Source(req.Source)

	workDate, resolved, err := s.workDateFor(ctx, req.EmployeeID, punchedAt)
	if err != nil {
		return attendance.RecordPunchResponse{}, err
	}

	blocked, err := s.guard.IsBlocked(ctx, req.EmployeeID, workDate)
	if err != nil {
		return attendance.RecordPunchResponse{}, fmt.Errorf("failed to check leave: %w", err)
	}
	if blocked {
		return attendance.RecordPunchResponse{}, attendance.ErrOnLeave
	}

	existing, err := s.SessionRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, workDate)
	if err != nil {
		return attendance.RecordPunchResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if existing != nil && existing.Locked {
		return attendance.RecordPunchResponse{}, attendance.ErrSessionLocked
	}

	geoValid, err := s.checkGeofence(resolved, source, req.Latitude, req.Longitude)
	if err != nil {
		return attendance.RecordPunchResponse{}, err
	}

	if err := s.checkSelfie(ctx, req, resolved, punchType, source); err != nil {
		return attendance.RecordPunchResponse{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.RecordPunchResponse{}, fmt.Errorf("failed to generate punch id: %w", err)
	}

	p := punch.Punch{
		ID:          id.String(),
		EmployeeID:  req.EmployeeID,
		Type:        punchType,
		PunchedAt:   punchedAt,
		Source:      source,
		DeviceID:    req.DeviceID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		GeoValid:    geoValid,
		SelfieRef:   req.SelfieRef,
		SelfieValid: req.SelfieValid,
		CreatedAt:   s.now().UTC(),
	}
	p, err = s.Repository.Append(ctx, p)
	if err != nil {
		return attendance.RecordPunchResponse{}, fmt.Errorf("failed to append punch: %w", err)
	}

	result, err := s.Recalculate(ctx, req.EmployeeID, workDate)
	if err != nil {
		return attendance.RecordPunchResponse{}, err
	}

	return attendance.RecordPunchResponse{
		PunchID:   p.ID,
		Type:      string(p.Type),
		PunchedAt: p.PunchedAt.Format(time.RFC3339),
		GeoValid:  geoValid,
		Session:   result.Session,
	}, nil
}

// workDateFor attributes a punch to its local calendar date, or to the previous
// date when it falls inside that day's overnight shift window.
func (s *AttendanceServiceImpl) workDateFor(ctx context.Context, employeeID string, at time.Time) (time.Time, *shift.Resolved, error) {
	today := shift.DateOnly(at.In(s.cfg.Location))

	prev, carryEnd, err := s.previousNight(ctx, employeeID, today)
	if err != nil {
		return time.Time{}, nil, err
	}
	if at.Before(carryEnd) {
		return today.AddDate(0, 0, -1), prev, nil
	}

	resolved, err := s.resolver.Resolve(ctx, employeeID, today)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to resolve shift: %w", err)
	}
	return today, resolved, nil
}

// previousNight resolves the day before date and, when that day's shift runs
// past midnight into date, returns the end of its overnight punch window.
// The returned time is zero when nothing carries over.
func (s *AttendanceServiceImpl) previousNight(ctx context.Context, employeeID string, date time.Time) (*shift.Resolved, time.Time, error) {
	loc := s.cfg.Location
	yesterday := date.AddDate(0, 0, -1)

	prev, err := s.resolver.Resolve(ctx, employeeID, yesterday)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to resolve shift: %w", err)
	}
	if prev == nil || prev.IsHoliday {
		return prev, time.Time{}, nil
	}

	seg, ok := NominalSegment(prev, yesterday, loc)
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if !ok || !seg.EndUTC.After(midnight) {
		return prev, time.Time{}, nil
	}
	_, to := DayWindow(yesterday, loc, []attendance.Segment{seg}, s.cfg.OvernightWindow)
	return prev, to, nil
}

// checkGeofence validates coordinates against the shift geofence. Only
// self-service punches are rejected when outside the radius.
func (s *AttendanceServiceImpl) checkGeofence(resolved *shift.Resolved, source punch.Source, lat, lng *float64) (*bool, error) {
	if resolved == nil || resolved.Template.Geofence == nil {
		return nil, nil
	}
	fence := resolved.Template.Geofence

	if lat == nil || lng == nil {
		if source.IsSelfService() {
			return nil, attendance.ErrOutsideGeofence
		}
		return nil, nil
	}

	valid := utils.WithinRadius(*lat, *lng, fence.Latitude, fence.Longitude, fence.RadiusMeters)
	if !valid && source.IsSelfService() {
		return &valid, attendance.ErrOutsideGeofence
	}
	return &valid, nil
}

// checkSelfie applies the compliance gate. Back-office sources are exempt.
func (s *AttendanceServiceImpl) checkSelfie(ctx context.Context, req attendance.RecordPunchRequest, resolved *shift.Resolved, t punch.Type, source punch.Source) error {
	if source == punch.SourceManagerAdjust || source == punch.SourceImportSync {
		return nil
	}

	var deviceID string
	if req.DeviceID != nil {
		deviceID = *req.DeviceID
	}
	mode, err := s.complianceMode(ctx, req.EmployeeID, deviceID, resolved)
	if err != nil {
		return err
	}

	if !complianceService.RequiresSelfie(mode, t) {
		return nil
	}
	if req.SelfieRef == nil || *req.SelfieRef == "" {
		return attendance.ErrSelfieRequired
	}
	if req.SelfieValid != nil && !*req.SelfieValid {
		return attendance.ErrSelfieRequired
	}
	return nil
}

func (s *AttendanceServiceImpl) complianceMode(ctx context.Context, employeeID, deviceID string, resolved *shift.Resolved) (compliance.Mode, error) {
	in := compliance.Input{EmployeeID: employeeID, DeviceID: deviceID}
	if resolved != nil {
		in.ShiftRequiresSelfie = resolved.Template.RequireSelfie
	}
	dept, err := s.directory.GetDepartment(ctx, employeeID)
	if err != nil {
		return "", fmt.Errorf("failed to get employee department: %w", err)
	}
	if dept != nil {
		in.DepartmentID = dept.ID
	}
	return s.gate.Resolve(in), nil
}

// ResolveCompliance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ResolveCompliance(ctx context.Context, q attendance.ComplianceQuery) (attendance.ComplianceResponse, error) {
	if err := q.Validate(); err != nil {
		return attendance.ComplianceResponse{}, err
	}

	date := q.ParsedDate
	if date.IsZero() {
		date = shift.DateOnly(s.now().In(s.cfg.Location))
	}

	resolved, err := s.resolver.Resolve(ctx, q.EmployeeID, date)
	if err != nil {
		return attendance.ComplianceResponse{}, fmt.Errorf("failed to resolve shift: %w", err)
	}

	mode, err := s.complianceMode(ctx, q.EmployeeID, q.DeviceID, resolved)
	if err != nil {
		return attendance.ComplianceResponse{}, err
	}

	resp := attendance.ComplianceResponse{
		EmployeeID:     q.EmployeeID,
		WorkDate:       date.Format("2006-01-02"),
		Mode:           string(mode),
		SelfieRequired: make(map[string]bool, len(punch.TypeValues)),
	}
	for _, t := range punch.TypeValues {
		resp.SelfieRequired[t] = complianceService.RequiresSelfie(mode, punch.Type(t))
	}
	if resolved != nil && resolved.Template.Geofence != nil {
		fence := resolved.Template.Geofence
		resp.Geofence = &attendance.GeofenceResponse{
			Latitude:     fence.Latitude,
			Longitude:    fence.Longitude,
			RadiusMeters: fence.RadiusMeters,
		}
	}
	return resp, nil
}
