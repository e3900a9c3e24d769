package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

type RecordPunchRequest struct {
	EmployeeID  string   `json:"employee_id"`
	Type        string   `json:"type"`
	PunchedAt   string   `json:"punched_at,omitempty"` // RFC3339, defaults to now
	Source      string   `json:"source"`
	DeviceID    *string  `json:"device_id,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	SelfieRef   *string  `json:"selfie_ref,omitempty"`
	SelfieValid *bool    `json:"selfie_valid,omitempty"`

	// parsed by Validate
	ParsedAt time.Time `json:"-"`
}

func (r *RecordPunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if !validator.IsInSlice(r.Type, punch.TypeValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: in, out, break_start, break_end",
		})
	}

	if !validator.IsInSlice(r.Source, punch.SourceValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "source",
			Message: "source must be one of: self_web, self_mobile, kiosk, manager_adjust, import_sync",
		})
	}

	if r.PunchedAt != "" {
		t, ok := validator.IsValidDateTime(r.PunchedAt)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "punched_at",
				Message: "punched_at must be an RFC3339 timestamp",
			})
		} else {
			r.ParsedAt = t.UTC()
		}
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be provided together",
		})
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecordPunchResponse struct {
	PunchID   string          `json:"punch_id"`
	Type      string          `json:"type"`
	PunchedAt string          `json:"punched_at"`
	GeoValid  *bool           `json:"geo_valid,omitempty"`
	Session   SessionResponse `json:"session"`
}

// ========================================
// RECALCULATION DTOs
// ========================================

type RecalculateRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"` // YYYY-MM-DD, local work date

	ParsedDate time.Time `json:"-"`
}

func (r *RecalculateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if d, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	} else {
		r.ParsedDate = d
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecalcResult struct {
	Session SessionResponse `json:"session"`
	// Written is false when the recomputed session matched the stored one.
	Written  bool     `json:"written"`
	NewFlags []string `json:"new_flags,omitempty"`
}

// ========================================
// SESSION QUERY DTOs
// ========================================

type SessionFilter struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`

	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

// maxRangeDays bounds a single period query.
const maxRangeDays = 62

func (f *SessionFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if f.Date != "" {
		if d, ok := validator.IsValidDate(f.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		} else {
			f.From, f.To = d, d
		}
	} else {
		start, okStart := validator.IsValidDate(f.StartDate)
		if !okStart {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
		end, okEnd := validator.IsValidDate(f.EndDate)
		if !okEnd {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
		if okStart && okEnd {
			switch {
			case end.Before(start):
				errs = append(errs, validator.ValidationError{
					Field:   "end_date",
					Message: "end_date must be after or equal to start_date",
				})
			case end.Sub(start) > maxRangeDays*24*time.Hour:
				errs = append(errs, validator.ValidationError{
					Field:   "end_date",
					Message: "date range must not exceed 62 days",
				})
			default:
				f.From, f.To = start, end
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SessionResponse struct {
	ID                string   `json:"id"`
	EmployeeID        string   `json:"employee_id"`
	WorkDate          string   `json:"work_date"`
	InTime            *string  `json:"in_time"`
	OutTime           *string  `json:"out_time"`
	NetMinutes        int      `json:"net_minutes"`
	RoundedNetMinutes int      `json:"rounded_net_minutes"`
	BreakMinutes      int      `json:"break_minutes"`
	BreakDelayMinutes int      `json:"break_delay_minutes"`
	NoBreakTaken      bool     `json:"no_break_taken"`
	OvertimeMinutes   int      `json:"overtime_minutes"`
	LateMinutes       int      `json:"late_minutes"`
	EarlyLeaveMinutes int      `json:"early_leave_minutes"`
	Status            string   `json:"status"`
	Flags             []string `json:"flags"`
	CalcMeta          CalcMeta `json:"calc_meta"`
	LastRecalcAt      string   `json:"last_recalc_at"`
	Locked            bool     `json:"locked"`
}

func NewSessionResponse(s Session) SessionResponse {
	resp := SessionResponse{
		ID:                s.ID,
		EmployeeID:        s.EmployeeID,
		WorkDate:          s.WorkDate.Format("2006-01-02"),
		NetMinutes:        s.NetMinutes,
		RoundedNetMinutes: s.RoundedNetMinutes,
		BreakMinutes:      s.BreakMinutes,
		BreakDelayMinutes: s.BreakDelayMinutes,
		NoBreakTaken:      s.NoBreakTaken,
		OvertimeMinutes:   s.OvertimeMinutes,
		LateMinutes:       s.LateMinutes,
		EarlyLeaveMinutes: s.EarlyLeaveMinutes,
		Status:            string(s.Status),
		Flags:             s.Flags.Strings(),
		CalcMeta:          s.CalcMeta,
		Locked:            s.Locked,
	}
	if s.InTime != nil {
		v := s.InTime.UTC().Format(time.RFC3339)
		resp.InTime = &v
	}
	if s.OutTime != nil {
		v := s.OutTime.UTC().Format(time.RFC3339)
		resp.OutTime = &v
	}
	if !s.LastRecalcAt.IsZero() {
		resp.LastRecalcAt = s.LastRecalcAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// ========================================
// COMPLIANCE DTOs
// ========================================

type ComplianceQuery struct {
	EmployeeID string `json:"employee_id"`
	DeviceID   string `json:"device_id,omitempty"`
	Date       string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today

	ParsedDate time.Time `json:"-"`
}

func (q *ComplianceQuery) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(q.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if q.Date != "" {
		if d, ok := validator.IsValidDate(q.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		} else {
			q.ParsedDate = d
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type GeofenceResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
}

type ComplianceResponse struct {
	EmployeeID     string            `json:"employee_id"`
	WorkDate       string            `json:"work_date"`
	Mode           string            `json:"mode"`
	SelfieRequired map[string]bool   `json:"selfie_required"`
	Geofence       *GeofenceResponse `json:"geofence,omitempty"`
}
