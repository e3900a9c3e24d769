package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/sse"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	hub    *sse.Hub
	config Config
	now    func() time.Time

	queue    chan notification.EmitRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewNotificationService starts the outbox workers. Emit never blocks the
// caller on the database: events are batched and flushed in the background.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:   repo,
		hub:    hub,
		config: cfg,
		now:    time.Now,
		queue:  make(chan notification.EmitRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval)

	return s
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.EmitRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, 0, len(batch))
		for _, req := range batch {
			n, err := s.newNotification(req)
			if err != nil {
				slog.Error("Failed to build notification", "worker", id, "error", err)
				continue
			}
			notifications = append(notifications, n)
		}

		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			slog.Error("Failed to insert notification batch", "worker", id, "count", len(notifications), "error", err)
		} else {
			slog.Debug("Inserted notification batch", "worker", id, "count", len(notifications))
			for _, n := range notifications {
				s.publish(n)
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// drain what is already queued
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Emit implements notification.Sink.
func (s *service) Emit(ctx context.Context, event, employeeID string, payload map[string]interface{}) error {
	if !knownEvent(event) {
		return fmt.Errorf("%w: %s", notification.ErrUnknownEvent, event)
	}

	req := notification.EmitRequest{Event: event, EmployeeID: employeeID, Payload: payload}
	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// queue full
		return s.directInsert(ctx, req)
	}
}

func (s *service) directInsert(ctx context.Context, req notification.EmitRequest) error {
	n, err := s.newNotification(req)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	s.publish(n)
	return nil
}

func (s *service) newNotification(req notification.EmitRequest) (*notification.Notification, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate notification id: %w", err)
	}
	return &notification.Notification{
		ID:         id.String(),
		EmployeeID: req.EmployeeID,
		Event:      req.Event,
		Payload:    req.Payload,
		CreatedAt:  s.now().UTC(),
	}, nil
}

func (s *service) publish(n *notification.Notification) {
	s.hub.Publish(n.EmployeeID, sse.Event{
		EmployeeID: n.EmployeeID,
		Event:      n.Event,
		Data:       toResponse(n),
	})
}

func knownEvent(event string) bool {
	for _, e := range notification.AllEvents() {
		if e == event {
			return true
		}
	}
	return false
}

func toResponse(n *notification.Notification) notification.NotificationResponse {
	return notification.NotificationResponse{
		ID:         n.ID,
		EmployeeID: n.EmployeeID,
		Event:      n.Event,
		Payload:    n.Payload,
		IsRead:     n.IsRead,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

// List returns the newest notifications for an employee.
func (s *service) List(ctx context.Context, employeeID string, limit int, unreadOnly bool) ([]notification.NotificationResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, err := s.repo.ListByEmployee(ctx, employeeID, limit, unreadOnly)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = toResponse(n)
	}
	return responses, nil
}

// MarkAsRead marks specified notifications as read
func (s *service) MarkAsRead(ctx context.Context, employeeID string, req notification.MarkAsReadRequest) error {
	if len(req.NotificationIDs) == 0 {
		return nil
	}
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, employeeID)
}

// Subscribe creates an SSE subscription for an employee
func (s *service) Subscribe(ctx context.Context, employeeID string) (<-chan notification.SSEEvent, func()) {
	ch, unsubscribe := s.hub.Subscribe(employeeID)
	slog.Info("SSE client connected",
		"employee_id", employeeID, "subscribers", s.hub.SubscriberCount(employeeID))

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			unsubscribe()
			slog.Info("SSE client disconnected",
				"employee_id", employeeID, "subscribers", s.hub.SubscriberCount(employeeID))
		})
	}

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				resp, ok := event.Data.(notification.NotificationResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop flushes queued events and waits for the workers to exit.
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("Notification service stopped")
	})
}
