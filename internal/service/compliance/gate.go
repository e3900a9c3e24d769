package compliance

import (
	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/compliance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
)

type GateImpl struct {
	policy config.CompliancePolicy
}

func NewGate(policy config.CompliancePolicy) compliance.Gate {
	return &GateImpl{policy: policy}
}

// Resolve applies global, department, employee and device modes in increasing
// precedence. A shift that requires a selfie raises the result to all.
func (g *GateImpl) Resolve(in compliance.Input) compliance.Mode {
	mode := g.policy.DefaultMode
	if mode.Strength() < 0 {
		mode = compliance.ModeOptional
	}

	if m, ok := lookup(g.policy.Departments, in.DepartmentID); ok {
		mode = m
	}
	if m, ok := lookup(g.policy.Employees, in.EmployeeID); ok {
		mode = m
	}
	if m, ok := lookup(g.policy.Devices, in.DeviceID); ok {
		mode = m
	}

	if in.ShiftRequiresSelfie && mode.Strength() < compliance.ModeAll.Strength() {
		mode = compliance.ModeAll
	}
	return mode
}

func lookup(modes map[string]compliance.Mode, id string) (compliance.Mode, bool) {
	if id == "" {
		return "", false
	}
	m, ok := modes[id]
	if !ok || m.Strength() < 0 {
		return "", false
	}
	return m, true
}

// RequiresSelfie maps a mode to the per-punch decision.
func RequiresSelfie(mode compliance.Mode, t punch.Type) bool {
	switch mode {
	case compliance.ModeInOnly:
		return t == punch.TypeIn
	case compliance.ModeInOut:
		return t == punch.TypeIn || t == punch.TypeOut
	case compliance.ModeAll:
		return true
	default:
		return false
	}
}
