package policy

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

type BreakSettings struct {
	Enabled         bool
	DurationMinutes int
}

// Provider is the role-based total-hours policy collaborator.
type Provider interface {
	IsTotalHoursMode(ctx context.Context, employeeID string, tmpl *shift.Template) (bool, error)
	GetTargetHours(ctx context.Context, employeeID string, tmpl *shift.Template) (float64, error)
	GetBreakSettings(ctx context.Context, employeeID string, tmpl *shift.Template) (BreakSettings, error)
}
