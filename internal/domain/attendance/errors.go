package attendance

import "errors"

// Attendance domain errors
var (
	// Recalculation errors
	ErrSessionLocked   = errors.New("attendance period is closed")
	ErrSessionNotFound = errors.New("attendance session not found")

	// Punch ingestion errors
	ErrInvalidPunchType   = errors.New("invalid punch type")
	ErrInvalidPunchSource = errors.New("invalid punch source")
	ErrSelfieRequired     = errors.New("a live selfie is required for this punch")
	ErrOutsideGeofence    = errors.New("you are outside the allowed radius")
	ErrOnLeave            = errors.New("employee is on leave for this date")
)
