package employee

import "context"

// Directory is the read-only employee/department directory consumed by the
// attendance engine.
type Directory interface {
	// GetDepartment returns nil when the employee has no department.
	GetDepartment(ctx context.Context, employeeID string) (*Department, error)
	GetManagerID(ctx context.Context, employeeID string) (*string, error)
	GetRole(ctx context.Context, employeeID string) (string, error)
	ListActiveEmployeeIDs(ctx context.Context) ([]string, error)
}
