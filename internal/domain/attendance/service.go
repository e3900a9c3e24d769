package attendance

import (
	"context"
	"time"
)

// AttendanceService defines the attendance engine operations
type AttendanceService interface {
	// Recalculate rebuilds the session for one employee and local work date.
	// Returns ErrSessionLocked without writing when the period is closed.
	Recalculate(ctx context.Context, employeeID string, workDate time.Time) (RecalcResult, error)

	// RecordPunch validates and appends a punch, then recalculates its work date.
	RecordPunch(ctx context.Context, req RecordPunchRequest) (RecordPunchResponse, error)

	// ResolveCompliance reports the selfie and geofence rules a punch would face.
	ResolveCompliance(ctx context.Context, q ComplianceQuery) (ComplianceResponse, error)

	GetSession(ctx context.Context, employeeID string, workDate time.Time) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}
