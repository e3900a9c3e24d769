package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

// Recalculator is the part of the attendance service the close-out job needs.
type Recalculator interface {
	Recalculate(ctx context.Context, employeeID string, workDate time.Time) (attendance.RecalcResult, error)
}

// AttendanceJobs closes out each local day so employees without punches still
// get an absent, day_off or on_leave session.
type AttendanceJobs struct {
	recalculator Recalculator
	directory    employee.Directory
	location     *time.Location
	now          func() time.Time

	mu         sync.Mutex
	lastClosed time.Time
}

func NewAttendanceJobs(recalculator Recalculator, directory employee.Directory, location *time.Location) *AttendanceJobs {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceJobs{
		recalculator: recalculator,
		directory:    directory,
		location:     location,
		now:          time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("close_out_previous_day", 1*time.Hour, j.CloseOutPreviousDay)
}

// CloseOutPreviousDay recalculates yesterday for every active employee. It only
// does work during the first local hour of the day, once per date.
func (j *AttendanceJobs) CloseOutPreviousDay(ctx context.Context) error {
	local := j.now().In(j.location)
	if local.Hour() != 0 {
		return nil
	}

	yesterday := shift.DateOnly(local).AddDate(0, 0, -1)

	j.mu.Lock()
	if j.lastClosed.Equal(yesterday) {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()

	summary, err := j.RecalculateDate(ctx, yesterday)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.lastClosed = yesterday
	j.mu.Unlock()

	slog.Info("Cron: close-out finished",
		"work_date", yesterday.Format("2006-01-02"),
		"employees", summary.Employees,
		"written", summary.Written,
		"locked", summary.Locked,
		"failed", summary.Failed)
	return nil
}

type CloseOutSummary struct {
	Employees int
	Written   int
	Locked    int
	Failed    int
}

// RecalculateDate recalculates one work date for all active employees.
// Individual failures are logged and counted; they never stop the run.
func (j *AttendanceJobs) RecalculateDate(ctx context.Context, workDate time.Time) (CloseOutSummary, error) {
	ids, err := j.directory.ListActiveEmployeeIDs(ctx)
	if err != nil {
		return CloseOutSummary{}, fmt.Errorf("failed to list active employees: %w", err)
	}

	summary := CloseOutSummary{Employees: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := j.recalculator.Recalculate(ctx, id, workDate)
		switch {
		case errors.Is(err, attendance.ErrSessionLocked):
			summary.Locked++
		case err != nil:
			summary.Failed++
			slog.Error("Cron: failed to recalculate session",
				"employee_id", id,
				"work_date", workDate.Format("2006-01-02"),
				"error", err)
		case result.Written:
			summary.Written++
		}
	}
	return summary, nil
}
