package shift

import (
	"context"
	"time"
)

// Resolver determines the effective shift for an employee on a local calendar date.
type Resolver interface {
	// Resolve returns nil (and no error) when the employee has no shift that day.
	Resolve(ctx context.Context, employeeID string, date time.Time) (*Resolved, error)
}
