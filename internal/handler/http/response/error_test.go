package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"validation", validator.ValidationErrors{{Field: "type", Message: "bad"}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"locked", attendance.ErrSessionLocked, http.StatusConflict, "CONFLICT"},
		{"wrapped locked", fmt.Errorf("recalculate: %w", attendance.ErrSessionLocked), http.StatusConflict, "CONFLICT"},
		{"session not found", attendance.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"on leave", attendance.ErrOnLeave, http.StatusForbidden, "FORBIDDEN"},
		{"selfie", attendance.ErrSelfieRequired, http.StatusForbidden, "FORBIDDEN"},
		{"invalid punch type", attendance.ErrInvalidPunchType, http.StatusBadRequest, "BAD_REQUEST"},
		{"shift not found", shift.ErrShiftNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"other employee", auth.ErrOtherEmployee, http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantErr, body.Error.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, validator.ValidationErrors{
		{Field: "employee_id", Message: "employee_id is required"},
		{Field: "date", Message: "date must be in YYYY-MM-DD format"},
	})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "employee_id is required", body.Error.Details["employee_id"])
	assert.Len(t, body.Error.Details, 2)
}
