package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

type AttendanceHandler interface {
	RecordPunch(w http.ResponseWriter, r *http.Request)
	Recalculate(w http.ResponseWriter, r *http.Request)
	ListSessions(w http.ResponseWriter, r *http.Request)
	Compliance(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// RecordPunch implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordPunch(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	var req attendance.RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if req.EmployeeID == "" {
		req.EmployeeID = caller.EmployeeID
	}
	if !caller.CanActFor(req.EmployeeID) {
		response.HandleError(w, auth.ErrOtherEmployee)
		return
	}

	// back-office sources are reserved for privileged callers
	source := punch.Source(req.Source)
	if (source == punch.SourceManagerAdjust || source == punch.SourceImportSync) && !caller.Role.IsPrivileged() {
		response.HandleError(w, auth.ErrPrivilegedRequired)
		return
	}

	result, err := h.attendanceService.RecordPunch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punch recorded", result)
}

// Recalculate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.Recalculate(r.Context(), req.EmployeeID, req.ParsedDate)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance recalculated", result)
}

// ListSessions implements AttendanceHandler. A single date returns one session;
// start_date and end_date return the period.
func (h *attendanceHandlerImpl) ListSessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	filter := attendance.SessionFilter{
		EmployeeID: chi.URLParam(r, "employeeID"),
		Date:       r.URL.Query().Get("date"),
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}
	if !caller.CanActFor(filter.EmployeeID) {
		response.HandleError(w, auth.ErrOtherEmployee)
		return
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if filter.Date != "" {
		session, err := h.attendanceService.GetSession(r.Context(), filter.EmployeeID, filter.From)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Success(w, attendance.NewSessionResponse(session))
		return
	}

	sessions, err := h.attendanceService.ListSessions(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]attendance.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, attendance.NewSessionResponse(s))
	}
	response.SuccessWithMeta(w, items, &response.Meta{
		TotalItems: int64(len(items)),
		StartDate:  filter.From.Format("2006-01-02"),
		EndDate:    filter.To.Format("2006-01-02"),
	})
}

// Compliance implements AttendanceHandler.
func (h *attendanceHandlerImpl) Compliance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return
	}

	q := attendance.ComplianceQuery{
		EmployeeID: r.URL.Query().Get("employee_id"),
		DeviceID:   r.URL.Query().Get("device_id"),
		Date:       r.URL.Query().Get("date"),
	}
	if q.EmployeeID == "" {
		q.EmployeeID = caller.EmployeeID
	}
	if !caller.CanActFor(q.EmployeeID) {
		response.HandleError(w, auth.ErrOtherEmployee)
		return
	}

	result, err := h.attendanceService.ResolveCompliance(r.Context(), q)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
