package policy

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

// RoleProvider answers total-hours policy questions from the role section of
// the policy file, keyed by the employee's role in the directory.
type RoleProvider struct {
	employee.Directory
	policy *config.Policy
}

func NewRoleProvider(directory employee.Directory, p *config.Policy) policy.Provider {
	return &RoleProvider{Directory: directory, policy: p}
}

func (p *RoleProvider) role(ctx context.Context, employeeID string, tmpl *shift.Template) (*config.RolePolicy, error) {
	name, err := p.Directory.GetRole(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee role: %w", err)
	}
	r := p.policy.Role(name)
	if r == nil {
		return nil, nil
	}
	if tmpl != nil && !r.AppliesTo(tmpl.ID) {
		return nil, nil
	}
	return r, nil
}

// IsTotalHoursMode implements policy.Provider.
func (p *RoleProvider) IsTotalHoursMode(ctx context.Context, employeeID string, tmpl *shift.Template) (bool, error) {
	if tmpl != nil && tmpl.Mode == shift.ModeTotalHours {
		return true, nil
	}
	r, err := p.role(ctx, employeeID, tmpl)
	if err != nil || r == nil {
		return false, err
	}
	return r.TotalHoursMode, nil
}

// GetTargetHours implements policy.Provider.
func (p *RoleProvider) GetTargetHours(ctx context.Context, employeeID string, tmpl *shift.Template) (float64, error) {
	r, err := p.role(ctx, employeeID, tmpl)
	if err != nil {
		return 0, err
	}
	if r != nil && r.TargetHours > 0 {
		return r.TargetHours, nil
	}
	return p.policy.Engine.DefaultTargetHours, nil
}

// GetBreakSettings implements policy.Provider.
func (p *RoleProvider) GetBreakSettings(ctx context.Context, employeeID string, tmpl *shift.Template) (policy.BreakSettings, error) {
	r, err := p.role(ctx, employeeID, tmpl)
	if err != nil || r == nil {
		return policy.BreakSettings{}, err
	}
	return policy.BreakSettings{
		Enabled:         r.Break.Enabled,
		DurationMinutes: r.Break.DurationMinutes,
	}, nil
}
