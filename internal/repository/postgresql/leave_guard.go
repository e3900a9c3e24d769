package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type leaveGuard struct {
	db *database.DB
}

func NewLeaveGuard(db *database.DB) leave.Guard {
	return &leaveGuard{db: db}
}

// IsBlocked implements leave.Guard.
func (g *leaveGuard) IsBlocked(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, g.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE employee_id = $1
			  AND status = 'approved'
			  AND $2::date BETWEEN start_date AND end_date
		)
	`

	var blocked bool
	if err := q.QueryRow(ctx, query, employeeID, date).Scan(&blocked); err != nil {
		return false, fmt.Errorf("failed to check approved leave: %w", err)
	}
	return blocked, nil
}

// IsCompanyHoliday implements leave.Guard.
func (g *leaveGuard) IsCompanyHoliday(ctx context.Context, date time.Time) (bool, error) {
	q := GetQuerier(ctx, g.db)

	var holiday bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM company_holidays WHERE holiday_date = $1::date)`, date).Scan(&holiday)
	if err != nil {
		return false, fmt.Errorf("failed to check company holiday: %w", err)
	}
	return holiday, nil
}
