package shift

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeFixed      Mode = "fixed"
	ModeTotalHours Mode = "total_hours"
)

type BreakPolicy string

const (
	BreakPolicyAuto  BreakPolicy = "auto"
	BreakPolicyPunch BreakPolicy = "punch"
	BreakPolicyNone  BreakPolicy = "none"
)

// Template is a shift definition maintained by HR. It is never mutated during a
// recalculation; weekly overrides produce a modified copy instead.
type Template struct {
	ID                   string
	Name                 string
	Mode                 Mode
	StartTime            *TimeOfDay
	EndTime              *TimeOfDay
	UnpaidBreakMinutes   int
	BreakPolicy          BreakPolicy
	BreakStartTime       *TimeOfDay
	GraceLateMinutes     int
	GraceEarlyMinutes    int
	RoundingRule         int // 0 (none), 5, 10 or 15
	OvertimeAfterMinutes int
	RequireSelfie        bool
	Geofence             *Geofence
	WeeklyOverrides      WeeklyOverrides
	DepartmentIDs        []string
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasMandatoryBreak reports whether the template deducts a configured break.
func (t Template) HasMandatoryBreak() bool {
	return t.UnpaidBreakMinutes > 0 && t.BreakPolicy != BreakPolicyNone
}

// BelongsTo reports whether the template is associated with the department.
func (t Template) BelongsTo(departmentID string) bool {
	for _, id := range t.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

type Geofence struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
}

// TimeOfDay is a local wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On places the time of day on the given calendar date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a local start/end pair. End <= Start means the window ends on
// the following day.
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

type OverrideKind string

const (
	OverrideDayOff OverrideKind = "day_off"
	OverrideHours  OverrideKind = "hours"
	OverrideShift  OverrideKind = "shift"
)

// WeeklyOverride replaces a template's behaviour on one weekday. Stored as JSON:
// null (day off), {"start","end"} (hours) or a shift id (alternate template).
type WeeklyOverride struct {
	Kind    OverrideKind
	Window  TimeWindow
	ShiftID string
}

func (w WeeklyOverride) MarshalJSON() ([]byte, error) {
	switch w.Kind {
	case OverrideHours:
		return json.Marshal(w.Window)
	case OverrideShift:
		return json.Marshal(map[string]string{"shift_id": w.ShiftID})
	default:
		return []byte("null"), nil
	}
}

func (w *WeeklyOverride) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*w = WeeklyOverride{Kind: OverrideDayOff}
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*w = WeeklyOverride{Kind: OverrideShift, ShiftID: id}
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var raw struct {
			Start   *TimeOfDay `json:"start"`
			End     *TimeOfDay `json:"end"`
			ShiftID string     `json:"shift_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw.ShiftID != "" {
			*w = WeeklyOverride{Kind: OverrideShift, ShiftID: raw.ShiftID}
			return nil
		}
		if raw.Start == nil || raw.End == nil {
			return ErrInvalidWeeklyOverride
		}
		*w = WeeklyOverride{Kind: OverrideHours, Window: TimeWindow{Start: *raw.Start, End: *raw.End}}
		return nil
	default:
		// legacy numeric shift ids
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidWeeklyOverride
		}
		*w = WeeklyOverride{Kind: OverrideShift, ShiftID: n.String()}
		return nil
	}
}

// WeeklyOverrides is the JSON column shape keyed by lowercase weekday name.
type WeeklyOverrides map[time.Weekday]WeeklyOverride

func (o WeeklyOverrides) MarshalJSON() ([]byte, error) {
	out := make(map[string]WeeklyOverride, len(o))
	for day, ov := range o {
		out[strings.ToLower(day.String())] = ov
	}
	return json.Marshal(out)
}

func (o *WeeklyOverrides) UnmarshalJSON(data []byte) error {
	var raw map[string]WeeklyOverride
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(WeeklyOverrides, len(raw))
	for name, ov := range raw {
		day, ok := ParseWeekday(name)
		if !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidWeeklyOverride, name)
		}
		out[day] = ov
	}
	*o = out
	return nil
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// Assignment pins a shift to one employee on one date. Highest precedence.
type Assignment struct {
	ID         string
	EmployeeID string
	WorkDate   time.Time
	ShiftID    string
	IsHoliday  bool
}

// EmployeeDefault is one row of an employee's default shift history.
type EmployeeDefault struct {
	ID                 string
	EmployeeID         string
	EffectiveStartDate time.Time
	ShiftID            string
}

type DateRangeOverride struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	ShiftID string    `json:"shift_id"`
}

// Covers reports whether date falls within [Start, End], compared by calendar day.
func (o DateRangeOverride) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(o.Start)) && !d.After(DateOnly(o.End))
}

// DepartmentRule is the department-level automation: a default shift, date-ranged
// overrides and an optional per-weekday split schedule.
type DepartmentRule struct {
	ID             string
	DepartmentID   string
	DepartmentSlug string
	DefaultShiftID *string
	Overrides      []DateRangeOverride
	SplitSchedule  map[time.Weekday][]TimeWindow
}

type Source string

const (
	SourceAssignment         Source = "assignment"
	SourceEmployeeDefault    Source = "employee_default"
	SourceDepartmentRule     Source = "department_rule"
	SourceDepartmentFallback Source = "department_fallback"
)

type Kind int

const (
	KindFixed Kind = iota + 1
	KindTotalHours
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindTotalHours:
		return "total_hours"
	default:
		return "unknown"
	}
}

// Resolved is the effective shift for one employee on one date. A day off is
// represented by a nil *Resolved.
type Resolved struct {
	Kind         Kind
	Template     Template
	TimeOverride *TimeWindow
	Source       Source
	DepartmentID string
	IsHoliday    bool
	// Virtual is set when the template was cloned with substituted hours.
	Virtual bool
	// SplitWindows carries the department split schedule for the weekday when
	// the shift was resolved at department level.
	SplitWindows []TimeWindow
}

// StartEnd returns the effective local start and end times, if any.
func (r *Resolved) StartEnd() (*TimeOfDay, *TimeOfDay) {
	if r == nil {
		return nil, nil
	}
	if r.TimeOverride != nil {
		start, end := r.TimeOverride.Start, r.TimeOverride.End
		return &start, &end
	}
	return r.Template.StartTime, r.Template.EndTime
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
