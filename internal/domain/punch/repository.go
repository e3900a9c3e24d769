package punch

import (
	"context"
	"time"
)

type Repository interface {
	// Append stores a new punch and returns it with ID and CreatedAt populated.
	Append(ctx context.Context, p Punch) (Punch, error)

	// ListByWindow returns the employee's punches with from <= punched_at < to,
	// ordered by punched_at then created_at.
	ListByWindow(ctx context.Context, employeeID string, from, to time.Time) ([]Punch, error)
}
