package notification

import (
	"context"
)

// Repository defines the notification outbox repository
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	CreateBatch(ctx context.Context, notifications []*Notification) error
	ListByEmployee(ctx context.Context, employeeID string, limit int, unreadOnly bool) ([]*Notification, error)
	MarkAsRead(ctx context.Context, ids []string, employeeID string) error
}
