package shift

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

// ---- map-backed fakes ----

type fakeShiftRepo struct {
	templates   map[string]shift.Template
	assignments map[string]shift.Assignment // employeeID|date
	defaults    map[string][]shift.EmployeeDefault
	rulesByID   map[string]shift.DepartmentRule
	rulesBySlug map[string]shift.DepartmentRule
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{
		templates:   map[string]shift.Template{},
		assignments: map[string]shift.Assignment{},
		defaults:    map[string][]shift.EmployeeDefault{},
		rulesByID:   map[string]shift.DepartmentRule{},
		rulesBySlug: map[string]shift.DepartmentRule{},
	}
}

func dayKey(employeeID string, d time.Time) string {
	return employeeID + "|" + d.Format("2006-01-02")
}

func (f *fakeShiftRepo) GetByID(_ context.Context, id string) (shift.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return shift.Template{}, shift.ErrShiftNotFound
	}
	return t, nil
}

func (f *fakeShiftRepo) ListActiveByDepartment(_ context.Context, departmentID string) ([]shift.Template, error) {
	var out []shift.Template
	for _, id := range sortedKeys(f.templates) {
		t := f.templates[id]
		if t.IsActive && t.BelongsTo(departmentID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeShiftRepo) GetAssignment(_ context.Context, employeeID string, date time.Time) (shift.Assignment, error) {
	a, ok := f.assignments[dayKey(employeeID, date)]
	if !ok {
		return shift.Assignment{}, shift.ErrAssignmentNotFound
	}
	return a, nil
}

func (f *fakeShiftRepo) GetEffectiveDefault(_ context.Context, employeeID string, date time.Time) (*shift.EmployeeDefault, error) {
	var best *shift.EmployeeDefault
	for _, d := range f.defaults[employeeID] {
		d := d
		if d.EffectiveStartDate.After(date) {
			continue
		}
		if best == nil || d.EffectiveStartDate.After(best.EffectiveStartDate) {
			best = &d
		}
	}
	return best, nil
}

func (f *fakeShiftRepo) GetDepartmentRule(_ context.Context, departmentID string) (shift.DepartmentRule, error) {
	r, ok := f.rulesByID[departmentID]
	if !ok {
		return shift.DepartmentRule{}, shift.ErrDepartmentRuleNotFound
	}
	return r, nil
}

func (f *fakeShiftRepo) GetDepartmentRuleBySlug(_ context.Context, slug string) (shift.DepartmentRule, error) {
	r, ok := f.rulesBySlug[slug]
	if !ok {
		return shift.DepartmentRule{}, shift.ErrDepartmentRuleNotFound
	}
	return r, nil
}

func sortedKeys(m map[string]shift.Template) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeDirectory struct {
	departments map[string]employee.Department
}

func (f *fakeDirectory) GetDepartment(_ context.Context, employeeID string) (*employee.Department, error) {
	d, ok := f.departments[employeeID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeDirectory) GetManagerID(context.Context, string) (*string, error) { return nil, nil }
func (f *fakeDirectory) GetRole(context.Context, string) (string, error)       { return "", nil }
func (f *fakeDirectory) ListActiveEmployeeIDs(context.Context) ([]string, error) {
	return nil, nil
}

// ---- helpers ----

func fixedTemplate(id, start, end string, depts ...string) shift.Template {
	s := shift.MustParseTimeOfDay(start)
	e := shift.MustParseTimeOfDay(end)
	return shift.Template{
		ID:            id,
		Name:          id,
		Mode:          shift.ModeFixed,
		StartTime:     &s,
		EndTime:       &e,
		BreakPolicy:   shift.BreakPolicyAuto,
		DepartmentIDs: depts,
		IsActive:      true,
	}
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

const (
	emp  = "emp-1"
	dept = "dept-ops"
)

func setup() (*fakeShiftRepo, *fakeDirectory, shift.Resolver) {
	repo := newFakeShiftRepo()
	dir := &fakeDirectory{departments: map[string]employee.Department{
		emp: {ID: dept, Name: "Operations Team"},
	}}
	return repo, dir, NewResolver(repo, dir)
}

// ---- tests ----

func TestResolve_Precedence(t *testing.T) {
	ctx := context.Background()
	day := date("2025-03-04") // Tuesday

	t.Run("assignment wins over everything", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-assign"] = fixedTemplate("s-assign", "06:00", "14:00")
		repo.templates["s-default"] = fixedTemplate("s-default", "09:00", "17:00")
		repo.assignments[dayKey(emp, day)] = shift.Assignment{EmployeeID: emp, WorkDate: day, ShiftID: "s-assign"}
		repo.defaults[emp] = []shift.EmployeeDefault{{EmployeeID: emp, EffectiveStartDate: date("2025-01-01"), ShiftID: "s-default"}}

		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-assign", res.Template.ID)
		assert.Equal(t, shift.SourceAssignment, res.Source)
		assert.Equal(t, shift.KindFixed, res.Kind)
	})

	t.Run("latest effective default on or before date", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-old"] = fixedTemplate("s-old", "08:00", "16:00")
		repo.templates["s-new"] = fixedTemplate("s-new", "09:00", "17:00")
		repo.templates["s-future"] = fixedTemplate("s-future", "10:00", "18:00")
		repo.defaults[emp] = []shift.EmployeeDefault{
			{EffectiveStartDate: date("2024-01-01"), ShiftID: "s-old"},
			{EffectiveStartDate: date("2025-03-04"), ShiftID: "s-new"},
			{EffectiveStartDate: date("2025-04-01"), ShiftID: "s-future"},
		}

		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-new", res.Template.ID)
		assert.Equal(t, shift.SourceEmployeeDefault, res.Source)
	})

	t.Run("department range override before department default", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-ramadan"] = fixedTemplate("s-ramadan", "07:00", "15:00")
		repo.templates["s-dept"] = fixedTemplate("s-dept", "09:00", "17:00")
		repo.rulesByID[dept] = shift.DepartmentRule{
			DepartmentID:   dept,
			DefaultShiftID: strPtr("s-dept"),
			Overrides: []shift.DateRangeOverride{
				{Start: date("2025-03-01"), End: date("2025-03-04"), ShiftID: "s-ramadan"},
			},
		}

		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-ramadan", res.Template.ID)
		assert.Equal(t, shift.SourceDepartmentRule, res.Source)
		assert.Equal(t, dept, res.DepartmentID)

		res, err = r.Resolve(ctx, emp, date("2025-03-05"))
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-dept", res.Template.ID)
	})

	t.Run("department rule found by legacy slug", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-dept"] = fixedTemplate("s-dept", "09:00", "17:00")
		repo.rulesBySlug["operations-team"] = shift.DepartmentRule{DepartmentSlug: "operations-team", DefaultShiftID: strPtr("s-dept")}

		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-dept", res.Template.ID)
	})

	t.Run("fallback to first active department template by id", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-b"] = fixedTemplate("s-b", "10:00", "18:00", dept)
		repo.templates["s-a"] = fixedTemplate("s-a", "09:00", "17:00", dept)
		inactive := fixedTemplate("s-0", "08:00", "16:00", dept)
		inactive.IsActive = false
		repo.templates["s-0"] = inactive

		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-a", res.Template.ID)
		assert.Equal(t, shift.SourceDepartmentFallback, res.Source)
	})

	t.Run("no match resolves to nil", func(t *testing.T) {
		_, _, r := setup()
		res, err := r.Resolve(ctx, emp, day)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("employee without department and history", func(t *testing.T) {
		repo, _, r := setup()
		repo.templates["s-a"] = fixedTemplate("s-a", "09:00", "17:00", dept)
		res, err := r.Resolve(ctx, "emp-without-dept", day)
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestResolve_InactiveAndMissingFallThrough(t *testing.T) {
	ctx := context.Background()
	day := date("2025-03-04")
	repo, _, r := setup()

	archived := fixedTemplate("s-archived", "06:00", "14:00")
	archived.IsActive = false
	repo.templates["s-archived"] = archived
	repo.templates["s-dept"] = fixedTemplate("s-dept", "09:00", "17:00")

	repo.assignments[dayKey(emp, day)] = shift.Assignment{ShiftID: "s-archived"}
	repo.defaults[emp] = []shift.EmployeeDefault{{EffectiveStartDate: date("2025-01-01"), ShiftID: "s-deleted"}}
	repo.rulesByID[dept] = shift.DepartmentRule{DepartmentID: dept, DefaultShiftID: strPtr("s-dept")}

	res, err := r.Resolve(ctx, emp, day)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "s-dept", res.Template.ID)
	assert.Equal(t, shift.SourceDepartmentRule, res.Source)
}

func TestResolve_HolidayAssignment(t *testing.T) {
	ctx := context.Background()
	day := date("2025-03-07") // Friday
	repo, _, r := setup()

	tmpl := fixedTemplate("s-day", "09:00", "17:00")
	tmpl.WeeklyOverrides = shift.WeeklyOverrides{time.Friday: {Kind: shift.OverrideDayOff}}
	repo.templates["s-day"] = tmpl
	repo.assignments[dayKey(emp, day)] = shift.Assignment{ShiftID: "s-day", IsHoliday: true}

	res, err := r.Resolve(ctx, emp, day)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsHoliday)

	// holiday without a usable shift still reports the holiday
	repo.assignments[dayKey(emp, day)] = shift.Assignment{ShiftID: "missing", IsHoliday: true}
	res, err = r.Resolve(ctx, emp, day)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsHoliday)
}

func TestResolve_WeeklyOverrides(t *testing.T) {
	ctx := context.Background()
	friday := date("2025-03-07")
	saturday := date("2025-03-08")
	sunday := date("2025-03-09")
	thursday := date("2025-03-06")

	repo, _, r := setup()
	tmpl := fixedTemplate("s-dept", "09:00", "17:00", dept)
	tmpl.WeeklyOverrides = shift.WeeklyOverrides{
		time.Friday:   {Kind: shift.OverrideDayOff},
		time.Saturday: {Kind: shift.OverrideHours, Window: shift.TimeWindow{Start: shift.MustParseTimeOfDay("08:00"), End: shift.MustParseTimeOfDay("12:00")}},
		time.Sunday:   {Kind: shift.OverrideShift, ShiftID: "s-weekend"},
	}
	repo.templates["s-dept"] = tmpl
	repo.templates["s-weekend"] = fixedTemplate("s-weekend", "10:00", "14:00")
	repo.rulesByID[dept] = shift.DepartmentRule{DepartmentID: dept, DefaultShiftID: strPtr("s-dept")}

	t.Run("null entry is a day off regardless of department default", func(t *testing.T) {
		res, err := r.Resolve(ctx, emp, friday)
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("hours entry clones with substituted times", func(t *testing.T) {
		res, err := r.Resolve(ctx, emp, saturday)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.True(t, res.Virtual)
		start, end := res.StartEnd()
		assert.Equal(t, "08:00", start.String())
		assert.Equal(t, "12:00", end.String())
		// the directory template is untouched
		assert.Equal(t, "09:00", repo.templates["s-dept"].StartTime.String())
	})

	t.Run("shift entry swaps to the alternate template", func(t *testing.T) {
		res, err := r.Resolve(ctx, emp, sunday)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-weekend", res.Template.ID)
		assert.Equal(t, shift.SourceDepartmentRule, res.Source)
	})

	t.Run("alternate missing keeps original", func(t *testing.T) {
		delete(repo.templates, "s-weekend")
		res, err := r.Resolve(ctx, emp, sunday)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-dept", res.Template.ID)
	})

	t.Run("weekday without override", func(t *testing.T) {
		res, err := r.Resolve(ctx, emp, thursday)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, "s-dept", res.Template.ID)
		assert.False(t, res.Virtual)
	})
}

func TestResolve_TotalHoursKind(t *testing.T) {
	ctx := context.Background()
	repo, _, r := setup()
	tmpl := fixedTemplate("s-flex", "09:00", "17:00")
	tmpl.Mode = shift.ModeTotalHours
	repo.templates["s-flex"] = tmpl
	repo.defaults[emp] = []shift.EmployeeDefault{{EffectiveStartDate: date("2025-01-01"), ShiftID: "s-flex"}}

	res, err := r.Resolve(ctx, emp, date("2025-03-04"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, shift.KindTotalHours, res.Kind)
}

func TestResolve_SplitSchedule(t *testing.T) {
	ctx := context.Background()
	repo, _, r := setup()
	repo.templates["s-dept"] = fixedTemplate("s-dept", "09:00", "17:00")
	windows := []shift.TimeWindow{
		{Start: shift.MustParseTimeOfDay("07:00"), End: shift.MustParseTimeOfDay("11:00")},
		{Start: shift.MustParseTimeOfDay("16:00"), End: shift.MustParseTimeOfDay("20:00")},
	}
	repo.rulesByID[dept] = shift.DepartmentRule{
		DepartmentID:   dept,
		DefaultShiftID: strPtr("s-dept"),
		SplitSchedule:  map[time.Weekday][]shift.TimeWindow{time.Tuesday: windows},
	}

	res, err := r.Resolve(ctx, emp, date("2025-03-04"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, windows, res.SplitWindows)

	res, err = r.Resolve(ctx, emp, date("2025-03-05"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.SplitWindows)
}
