package notification

import (
	"context"
)

// Sink is the fire-and-forget event sink used by the attendance engine.
type Sink interface {
	Emit(ctx context.Context, event, employeeID string, payload map[string]interface{}) error
}

// Service defines the notification service interface
type Service interface {
	Sink

	List(ctx context.Context, employeeID string, limit int, unreadOnly bool) ([]NotificationResponse, error)
	MarkAsRead(ctx context.Context, employeeID string, req MarkAsReadRequest) error

	// SSE subscription
	Subscribe(ctx context.Context, employeeID string) (<-chan SSEEvent, func())

	// Lifecycle
	Stop()
}
