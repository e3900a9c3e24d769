package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

type ResolverImpl struct {
	shift.Repository
	employee.Directory
}

func NewResolver(shiftRepository shift.Repository, directory employee.Directory) shift.Resolver {
	return &ResolverImpl{
		Repository: shiftRepository,
		Directory:  directory,
	}
}

// Resolve implements shift.Resolver.
func (r *ResolverImpl) Resolve(ctx context.Context, employeeID string, date time.Time) (*shift.Resolved, error) {
	date = shift.DateOnly(date)

	base, err := r.resolveBase(ctx, employeeID, date)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}

	// A holiday assignment is terminal; the orchestrator handles it before any
	// schedule is evaluated.
	if base.Source == shift.SourceAssignment && base.IsHoliday {
		return base, nil
	}

	return r.applyWeeklyOverride(ctx, base, date)
}

func (r *ResolverImpl) resolveBase(ctx context.Context, employeeID string, date time.Time) (*shift.Resolved, error) {
	// 1. explicit per-date assignment
	assignment, err := r.Repository.GetAssignment(ctx, employeeID, date)
	switch {
	case err == nil:
		tmpl, ok, err := r.activeTemplate(ctx, assignment.ShiftID, shift.SourceAssignment, employeeID)
		if err != nil {
			return nil, err
		}
		if ok {
			return newResolved(tmpl, shift.SourceAssignment, "", assignment.IsHoliday), nil
		}
		if assignment.IsHoliday {
			return &shift.Resolved{Kind: shift.KindFixed, Source: shift.SourceAssignment, IsHoliday: true}, nil
		}
	case errors.Is(err, shift.ErrAssignmentNotFound):
	default:
		return nil, fmt.Errorf("failed to get shift assignment: %w", err)
	}

	// 2. employee default shift history
	def, err := r.Repository.GetEffectiveDefault(ctx, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get default shift: %w", err)
	}
	if def != nil {
		tmpl, ok, err := r.activeTemplate(ctx, def.ShiftID, shift.SourceEmployeeDefault, employeeID)
		if err != nil {
			return nil, err
		}
		if ok {
			return newResolved(tmpl, shift.SourceEmployeeDefault, "", false), nil
		}
	}

	dept, err := r.Directory.GetDepartment(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee department: %w", err)
	}
	if dept == nil {
		return nil, nil
	}

	// 3. department automation rule
	rule, err := r.departmentRule(ctx, *dept)
	if err != nil {
		return nil, err
	}
	var split []shift.TimeWindow
	if rule != nil {
		split = rule.SplitSchedule[date.Weekday()]

		for _, ov := range rule.Overrides {
			if !ov.Covers(date) {
				continue
			}
			tmpl, ok, err := r.activeTemplate(ctx, ov.ShiftID, shift.SourceDepartmentRule, employeeID)
			if err != nil {
				return nil, err
			}
			if ok {
				res := newResolved(tmpl, shift.SourceDepartmentRule, dept.ID, false)
				res.SplitWindows = split
				return res, nil
			}
		}

		if rule.DefaultShiftID != nil && *rule.DefaultShiftID != "" {
			tmpl, ok, err := r.activeTemplate(ctx, *rule.DefaultShiftID, shift.SourceDepartmentRule, employeeID)
			if err != nil {
				return nil, err
			}
			if ok {
				res := newResolved(tmpl, shift.SourceDepartmentRule, dept.ID, false)
				res.SplitWindows = split
				return res, nil
			}
		}
	}

	// 4. any active shift associated with the department
	templates, err := r.Repository.ListActiveByDepartment(ctx, dept.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department shifts: %w", err)
	}
	for _, tmpl := range templates {
		if !tmpl.IsActive {
			continue
		}
		res := newResolved(tmpl, shift.SourceDepartmentFallback, dept.ID, false)
		res.SplitWindows = split
		return res, nil
	}

	return nil, nil
}

// departmentRule looks the rule up by department id, then by the legacy slug
// derived from the department name. Returns nil when neither exists.
func (r *ResolverImpl) departmentRule(ctx context.Context, dept employee.Department) (*shift.DepartmentRule, error) {
	rule, err := r.Repository.GetDepartmentRule(ctx, dept.ID)
	if err == nil {
		return &rule, nil
	}
	if !errors.Is(err, shift.ErrDepartmentRuleNotFound) {
		return nil, fmt.Errorf("failed to get department rule: %w", err)
	}

	slug := dept.Slug()
	if slug == "" {
		return nil, nil
	}
	rule, err = r.Repository.GetDepartmentRuleBySlug(ctx, slug)
	if err == nil {
		return &rule, nil
	}
	if errors.Is(err, shift.ErrDepartmentRuleNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to get department rule by slug: %w", err)
}

// activeTemplate loads a referenced template. Missing and inactive templates are
// reported as not found so resolution falls through to the next level.
func (r *ResolverImpl) activeTemplate(ctx context.Context, id string, level shift.Source, employeeID string) (shift.Template, bool, error) {
	tmpl, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shift.ErrShiftNotFound) {
			slog.Warn("Shift reference not found, falling through",
				"shift_id", id, "level", level, "employee_id", employeeID)
			return shift.Template{}, false, nil
		}
		return shift.Template{}, false, fmt.Errorf("failed to get shift %s: %w", id, err)
	}
	if !tmpl.IsActive {
		slog.Warn("Shift reference is inactive, falling through",
			"shift_id", id, "level", level, "employee_id", employeeID)
		return shift.Template{}, false, nil
	}
	return tmpl, true, nil
}

func (r *ResolverImpl) applyWeeklyOverride(ctx context.Context, base *shift.Resolved, date time.Time) (*shift.Resolved, error) {
	ov, ok := base.Template.WeeklyOverrides[date.Weekday()]
	if !ok {
		return base, nil
	}

	switch ov.Kind {
	case shift.OverrideDayOff:
		return nil, nil

	case shift.OverrideHours:
		res := *base
		window := ov.Window
		res.TimeOverride = &window
		res.Virtual = true
		res.SplitWindows = nil
		return &res, nil

	case shift.OverrideShift:
		alt, ok, err := r.activeTemplate(ctx, ov.ShiftID, base.Source, "")
		if err != nil {
			return nil, err
		}
		if !ok {
			return base, nil
		}
		res := newResolved(alt, base.Source, base.DepartmentID, base.IsHoliday)
		res.Virtual = base.Virtual
		return res, nil
	}

	return base, nil
}

func newResolved(tmpl shift.Template, source shift.Source, departmentID string, holiday bool) *shift.Resolved {
	kind := shift.KindFixed
	if tmpl.Mode == shift.ModeTotalHours {
		kind = shift.KindTotalHours
	}
	return &shift.Resolved{
		Kind:         kind,
		Template:     tmpl,
		Source:       source,
		DepartmentID: departmentID,
		IsHoliday:    holiday,
	}
}
