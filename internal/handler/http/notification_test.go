package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/notification"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
)

func TestNotificationHandler_ListAndMarkAsRead(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/api/v1/notifications/", nil, "emp-1", jwt.RoleEmployee)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-1", s.notif.listed)

	rec = s.do(t, http.MethodPost, "/api/v1/notifications/read", map[string]interface{}{"notification_ids": []string{}}, "emp-1", jwt.RoleEmployee)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/notifications/read", map[string]interface{}{"notification_ids": []string{"n-1"}}, "emp-1", jwt.RoleEmployee)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n-1"}, s.notif.marked)
}

func TestNotificationHandler_Stream(t *testing.T) {
	t.Run("rejects missing and access tokens", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(t, http.MethodGet, "/api/v1/notifications/stream", nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		access, _, err := s.jwt.GenerateAccessToken("emp-1", jwt.RoleEmployee)
		require.NoError(t, err)
		rec = s.do(t, http.MethodGet, "/api/v1/notifications/stream?token="+access, nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("streams events", func(t *testing.T) {
		s := newTestServer()
		token, _, err := s.jwt.GenerateSSEToken("emp-1")
		require.NoError(t, err)

		s.notif.events <- notification.SSEEvent{
			Event: notification.EventLate,
			Data:  notification.NotificationResponse{ID: "n-1", EmployeeID: "emp-1", Event: notification.EventLate},
		}
		close(s.notif.events)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?token="+token, nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "event: connected")
		assert.Contains(t, rec.Body.String(), "event: attendance.late")
		assert.True(t, s.notif.released)
	})
}
