package attendance

import (
	"context"
	"time"
)

// SessionRepository persists AttendanceSession rows.
type SessionRepository interface {
	// GetByEmployeeAndDate returns nil when no session exists yet.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time) (*Session, error)

	// Upsert atomically updates the (employee_id, work_date) row or inserts it.
	// A locked row is left untouched and ErrSessionLocked is returned.
	Upsert(ctx context.Context, session Session) (Session, error)

	// ListByEmployeeAndRange returns sessions with from <= work_date <= to, by date.
	ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time) ([]Session, error)
}

type EarlyLeaveRepository interface {
	// CreateIfNotExists inserts the request unless a pending or approved request
	// already exists for the employee and date. created is false when skipped.
	CreateIfNotExists(ctx context.Context, req EarlyLeaveRequest) (created bool, err error)
}
