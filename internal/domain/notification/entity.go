package notification

import (
	"time"
)

// Event names emitted by the attendance engine.
const (
	EventLate         = "attendance.late"
	EventLeftEarly    = "attendance.left_early"
	EventNoBreakTaken = "attendance.no_break_taken"
	EventBreakDelay   = "attendance.break_delay"
)

// AllEvents returns every event the engine can emit
func AllEvents() []string {
	return []string{EventLate, EventLeftEarly, EventNoBreakTaken, EventBreakDelay}
}

// Notification is one outbox row written by the sink workers.
type Notification struct {
	ID         string
	EmployeeID string
	Event      string
	Payload    map[string]interface{}
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// EmitRequest is one queued event.
type EmitRequest struct {
	Event      string
	EmployeeID string
	Payload    map[string]interface{}
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID         string                 `json:"id"`
	EmployeeID string                 `json:"employee_id"`
	Event      string                 `json:"event"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	IsRead     bool                   `json:"is_read"`
	ReadAt     *time.Time             `json:"read_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string               `json:"event"`
	Data  NotificationResponse `json:"data"`
}

type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}

type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
