package leave

import (
	"context"
	"time"
)

// Guard answers whether attendance for a date is pre-empted by approved leave
// or a company-wide holiday.
type Guard interface {
	// IsBlocked reports an approved leave request covering the employee's date.
	IsBlocked(ctx context.Context, employeeID string, date time.Time) (bool, error)
	IsCompanyHoliday(ctx context.Context, date time.Time) (bool, error)
}
