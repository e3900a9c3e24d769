package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/compliance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	complianceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/compliance"
)

func dateKey(employeeID string, d time.Time) string {
	return employeeID + "|" + d.Format("2006-01-02")
}

// ---- sessions ----

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]attendance.Session
	upserts  int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]attendance.Session{}}
}

func (m *mockSessionRepo) GetByEmployeeAndDate(_ context.Context, employeeID string, workDate time.Time) (*attendance.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[dateKey(employeeID, workDate)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSessionRepo) Upsert(_ context.Context, s attendance.Session) (attendance.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dateKey(s.EmployeeID, s.WorkDate)
	if existing, ok := m.sessions[key]; ok {
		if existing.Locked {
			return attendance.Session{}, attendance.ErrSessionLocked
		}
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else {
		s.ID = uuid.NewString()
		s.CreatedAt = s.LastRecalcAt
	}
	s.UpdatedAt = s.LastRecalcAt
	m.sessions[key] = s
	m.upserts++
	return s, nil
}

func (m *mockSessionRepo) ListByEmployeeAndRange(_ context.Context, employeeID string, from, to time.Time) ([]attendance.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Session
	for _, s := range m.sessions {
		if s.EmployeeID == employeeID && !s.WorkDate.Before(from) && !s.WorkDate.After(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

// ---- early leave ----

type mockEarlyLeaveRepo struct {
	requests []attendance.EarlyLeaveRequest
	err      error
}

func (m *mockEarlyLeaveRepo) CreateIfNotExists(_ context.Context, req attendance.EarlyLeaveRequest) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.requests {
		if r.EmployeeID == req.EmployeeID && r.RequestDate.Equal(req.RequestDate) &&
			(r.Status == attendance.EarlyLeavePending || r.Status == attendance.EarlyLeaveApproved) {
			return false, nil
		}
	}
	m.requests = append(m.requests, req)
	return true, nil
}

// ---- punches ----

type mockPunchRepo struct {
	punches []punch.Punch
}

func (m *mockPunchRepo) Append(_ context.Context, p punch.Punch) (punch.Punch, error) {
	m.punches = append(m.punches, p)
	return p, nil
}

func (m *mockPunchRepo) ListByWindow(_ context.Context, employeeID string, from, to time.Time) ([]punch.Punch, error) {
	var out []punch.Punch
	for _, p := range m.punches {
		if p.EmployeeID == employeeID && !p.PunchedAt.Before(from) && p.PunchedAt.Before(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PunchedAt.Before(out[j].PunchedAt) })
	return out, nil
}

// ---- collaborators ----

type mockResolver struct {
	byDate   map[string]*shift.Resolved
	fallback *shift.Resolved
}

func (m *mockResolver) Resolve(_ context.Context, _ string, date time.Time) (*shift.Resolved, error) {
	if r, ok := m.byDate[date.Format("2006-01-02")]; ok {
		return r, nil
	}
	return m.fallback, nil
}

type mockDirectory struct {
	department *employee.Department
	managerID  *string
	employees  []string
}

func (m *mockDirectory) GetDepartment(context.Context, string) (*employee.Department, error) {
	return m.department, nil
}
func (m *mockDirectory) GetManagerID(context.Context, string) (*string, error) {
	return m.managerID, nil
}
func (m *mockDirectory) GetRole(context.Context, string) (string, error) { return "staff", nil }
func (m *mockDirectory) ListActiveEmployeeIDs(context.Context) ([]string, error) {
	return m.employees, nil
}

type mockGuard struct {
	blocked  map[string]bool
	holidays map[string]bool
}

func (m *mockGuard) IsBlocked(_ context.Context, employeeID string, date time.Time) (bool, error) {
	return m.blocked[dateKey(employeeID, date)], nil
}

func (m *mockGuard) IsCompanyHoliday(_ context.Context, date time.Time) (bool, error) {
	return m.holidays[date.Format("2006-01-02")], nil
}

type mockPolicy struct {
	totalHours  bool
	targetHours float64
	brk         policy.BreakSettings
}

func (m *mockPolicy) IsTotalHoursMode(_ context.Context, _ string, tmpl *shift.Template) (bool, error) {
	return m.totalHours || (tmpl != nil && tmpl.Mode == shift.ModeTotalHours), nil
}
func (m *mockPolicy) GetTargetHours(context.Context, string, *shift.Template) (float64, error) {
	return m.targetHours, nil
}
func (m *mockPolicy) GetBreakSettings(context.Context, string, *shift.Template) (policy.BreakSettings, error) {
	return m.brk, nil
}

type emitted struct {
	Event      string
	EmployeeID string
	Payload    map[string]interface{}
}

type mockSink struct {
	events []emitted
	err    error
}

func (m *mockSink) Emit(_ context.Context, event, employeeID string, payload map[string]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, emitted{Event: event, EmployeeID: employeeID, Payload: payload})
	return nil
}

func (m *mockSink) count(event string) int {
	n := 0
	for _, e := range m.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

var errSinkDown = errors.New("sink down")

// ---- harness ----

type harness struct {
	svc        *AttendanceServiceImpl
	sessions   *mockSessionRepo
	earlyLeave *mockEarlyLeaveRepo
	punches    *mockPunchRepo
	resolver   *mockResolver
	directory  *mockDirectory
	guard      *mockGuard
	policy     *mockPolicy
	sink       *mockSink
	clock      time.Time
}

func newHarness(compliancePolicy config.CompliancePolicy) *harness {
	manager := "mgr-1"
	h := &harness{
		sessions:   newMockSessionRepo(),
		earlyLeave: &mockEarlyLeaveRepo{},
		punches:    &mockPunchRepo{},
		resolver:   &mockResolver{byDate: map[string]*shift.Resolved{}},
		directory:  &mockDirectory{department: &employee.Department{ID: "dept-ops", Name: "Operations"}, managerID: &manager},
		guard:      &mockGuard{blocked: map[string]bool{}, holidays: map[string]bool{}},
		policy:     &mockPolicy{targetHours: 8},
		sink:       &mockSink{},
		clock:      time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	if compliancePolicy.DefaultMode == "" {
		compliancePolicy.DefaultMode = compliance.ModeOptional
	}

	cfg := config.DefaultEngineConfig()
	cfg.Location = jakarta

	svc := NewAttendanceService(
		nil,
		h.sessions,
		h.earlyLeave,
		h.punches,
		h.resolver,
		h.directory,
		h.guard,
		h.policy,
		complianceService.NewGate(compliancePolicy),
		h.sink,
		cfg,
	).(*AttendanceServiceImpl)
	svc.now = func() time.Time { return h.clock }
	h.svc = svc
	return h
}

func (h *harness) addPunch(t punch.Type, hhmm string, src punch.Source, dayOffset ...int) {
	p := mkPunch(t, hhmm, src, dayOffset...)
	p.ID = uuid.NewString()
	p.EmployeeID = testEmployee
	h.punches.punches = append(h.punches.punches, p)
}

const testEmployee = "emp-1"
