package shift

import (
	"context"
	"time"
)

// Repository is the read-only shift directory used by the resolver.
type Repository interface {
	// GetByID returns ErrShiftNotFound when the template does not exist. Inactive
	// templates are returned as-is; callers decide how to treat them.
	GetByID(ctx context.Context, id string) (Template, error)

	// ListActiveByDepartment returns active templates associated with the
	// department, ordered by id ascending.
	ListActiveByDepartment(ctx context.Context, departmentID string) ([]Template, error)

	// GetAssignment returns ErrAssignmentNotFound when no row exists for the date.
	GetAssignment(ctx context.Context, employeeID string, date time.Time) (Assignment, error)

	// GetEffectiveDefault returns the history row with the latest effective start
	// date on or before date, or nil.
	GetEffectiveDefault(ctx context.Context, employeeID string, date time.Time) (*EmployeeDefault, error)

	GetDepartmentRule(ctx context.Context, departmentID string) (DepartmentRule, error)
	GetDepartmentRuleBySlug(ctx context.Context, slug string) (DepartmentRule, error)
}
