package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/compliance"
)

// PolicyVersion is the only schema version this build understands.
const PolicyVersion = 1

var ErrUnsupportedPolicyVersion = errors.New("unsupported policy version")

// Policy is the engine's versioned configuration document, loaded once at startup.
type Policy struct {
	Version    int              `yaml:"version"`
	Engine     EnginePolicy     `yaml:"engine"`
	Compliance CompliancePolicy `yaml:"compliance"`
	Roles      []RolePolicy     `yaml:"roles"`
}

type EnginePolicy struct {
	DefaultTargetHours     float64 `yaml:"default_target_hours"`
	OvernightWindowMinutes int     `yaml:"overnight_window_minutes"`
}

type CompliancePolicy struct {
	DefaultMode compliance.Mode            `yaml:"default_mode"`
	Departments map[string]compliance.Mode `yaml:"departments"`
	Employees   map[string]compliance.Mode `yaml:"employees"`
	Devices     map[string]compliance.Mode `yaml:"devices"`
}

// RolePolicy is a role-based total-hours policy. ShiftIDs narrows the policy to
// specific shift templates; empty means every shift.
type RolePolicy struct {
	Name           string      `yaml:"name"`
	TotalHoursMode bool        `yaml:"total_hours_mode"`
	TargetHours    float64     `yaml:"target_hours"`
	Break          BreakPolicy `yaml:"break"`
	ShiftIDs       []string    `yaml:"shift_ids"`
}

type BreakPolicy struct {
	Enabled         bool `yaml:"enabled"`
	DurationMinutes int  `yaml:"duration_minutes"`
}

// DefaultPolicy is used when POLICY_FILE is not set.
func DefaultPolicy() *Policy {
	return &Policy{
		Version: PolicyVersion,
		Engine: EnginePolicy{
			DefaultTargetHours:     8,
			OvernightWindowMinutes: 360,
		},
		Compliance: CompliancePolicy{DefaultMode: compliance.ModeOptional},
	}
}

func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a policy document. Unknown fields are rejected.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	p.Version = 0

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Validate() error {
	if p.Version != PolicyVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedPolicyVersion, p.Version)
	}
	if p.Engine.DefaultTargetHours <= 0 || p.Engine.DefaultTargetHours > 24 {
		return fmt.Errorf("engine.default_target_hours must be between 0 and 24")
	}
	if p.Engine.OvernightWindowMinutes < 0 {
		return fmt.Errorf("engine.overnight_window_minutes must not be negative")
	}

	if p.Compliance.DefaultMode == "" {
		p.Compliance.DefaultMode = compliance.ModeOptional
	}
	modes := map[string]compliance.Mode{"compliance.default_mode": p.Compliance.DefaultMode}
	for id, m := range p.Compliance.Departments {
		modes["compliance.departments."+id] = m
	}
	for id, m := range p.Compliance.Employees {
		modes["compliance.employees."+id] = m
	}
	for id, m := range p.Compliance.Devices {
		modes["compliance.devices."+id] = m
	}
	for field, m := range modes {
		if m.Strength() < 0 {
			return fmt.Errorf("%s: invalid compliance mode %q", field, m)
		}
	}

	seen := make(map[string]bool, len(p.Roles))
	for i, r := range p.Roles {
		if r.Name == "" {
			return fmt.Errorf("roles[%d].name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("roles[%d]: duplicate role %q", i, r.Name)
		}
		seen[r.Name] = true
		if r.TargetHours < 0 || r.TargetHours > 24 {
			return fmt.Errorf("roles[%d].target_hours must be between 0 and 24", i)
		}
		if r.Break.DurationMinutes < 0 {
			return fmt.Errorf("roles[%d].break.duration_minutes must not be negative", i)
		}
	}
	return nil
}

// EngineConfig derives the injected engine settings for the given site zone.
func (p *Policy) EngineConfig(loc *time.Location) EngineConfig {
	return EngineConfig{
		Location:             loc,
		DefaultTargetMinutes: int(p.Engine.DefaultTargetHours * 60),
		OvernightWindow:      time.Duration(p.Engine.OvernightWindowMinutes) * time.Minute,
	}
}

// Role returns the policy for a role name, or nil.
func (p *Policy) Role(name string) *RolePolicy {
	for i := range p.Roles {
		if p.Roles[i].Name == name {
			return &p.Roles[i]
		}
	}
	return nil
}

// AppliesTo reports whether the role policy covers the given shift id.
func (r *RolePolicy) AppliesTo(shiftID string) bool {
	if len(r.ShiftIDs) == 0 {
		return true
	}
	for _, id := range r.ShiftIDs {
		if id == shiftID {
			return true
		}
	}
	return false
}
