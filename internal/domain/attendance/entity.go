package attendance

import (
	"reflect"
	"sort"
	"time"
)

type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusLeftEarly  Status = "left_early"
	StatusAbsent     Status = "absent"
	StatusIncomplete Status = "incomplete"
	StatusOnLeave    Status = "on_leave"
	StatusHoliday    Status = "holiday"
	StatusDayOff     Status = "day_off"
)

var StatusValues = []string{
	string(StatusPresent),
	string(StatusLate),
	string(StatusLeftEarly),
	string(StatusAbsent),
	string(StatusIncomplete),
	string(StatusOnLeave),
	string(StatusHoliday),
	string(StatusDayOff),
}

type Flag string

const (
	FlagLate          Flag = "late"
	FlagLeftEarly     Flag = "left_early"
	FlagMissedSegment Flag = "missed_segment"
	FlagIncomplete    Flag = "incomplete"
	FlagNoBreakTaken  Flag = "no_break_taken"
	FlagBreakDelay    Flag = "break_delay"
)

// NotifiableFlags are the conditions that produce a notification the first time
// they appear on a session.
var NotifiableFlags = []Flag{FlagLate, FlagLeftEarly, FlagNoBreakTaken, FlagBreakDelay}

// Flags is a set of flags kept sorted and free of duplicates.
type Flags []Flag

func NewFlags(flags ...Flag) Flags {
	var f Flags
	for _, flag := range flags {
		f = f.With(flag)
	}
	return f
}

func (f Flags) Has(flag Flag) bool {
	for _, x := range f {
		if x == flag {
			return true
		}
	}
	return false
}

// With returns a copy of the set including flag.
func (f Flags) With(flag Flag) Flags {
	if f.Has(flag) {
		return f
	}
	out := make(Flags, 0, len(f)+1)
	out = append(out, f...)
	out = append(out, flag)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Without returns a copy of the set excluding flag.
func (f Flags) Without(flag Flag) Flags {
	out := make(Flags, 0, len(f))
	for _, x := range f {
		if x != flag {
			out = append(out, x)
		}
	}
	return out
}

func (f Flags) Union(other Flags) Flags {
	out := f
	for _, flag := range other {
		out = out.With(flag)
	}
	return out
}

// Added returns the flags present in f but not in prev.
func (f Flags) Added(prev Flags) Flags {
	var out Flags
	for _, flag := range f {
		if !prev.Has(flag) {
			out = append(out, flag)
		}
	}
	return out
}

func (f Flags) Strings() []string {
	out := make([]string, len(f))
	for i, flag := range f {
		out[i] = string(flag)
	}
	return out
}

// Session is the persisted per-day attendance result. One row per employee and
// work date.
type Session struct {
	ID                string
	EmployeeID        string
	WorkDate          time.Time
	InTime            *time.Time
	OutTime           *time.Time
	NetMinutes        int
	RoundedNetMinutes int
	BreakMinutes      int
	BreakDelayMinutes int
	NoBreakTaken      bool
	OvertimeMinutes   int
	LateMinutes       int
	EarlyLeaveMinutes int
	Status            Status
	Flags             Flags
	CalcMeta          CalcMeta
	LastRecalcAt      time.Time
	Locked            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SameOutcome reports whether two sessions carry identical computed values,
// ignoring identity and bookkeeping timestamps.
func (s Session) SameOutcome(other Session) bool {
	return s.EmployeeID == other.EmployeeID &&
		s.WorkDate.Equal(other.WorkDate) &&
		timePtrEqual(s.InTime, other.InTime) &&
		timePtrEqual(s.OutTime, other.OutTime) &&
		s.NetMinutes == other.NetMinutes &&
		s.RoundedNetMinutes == other.RoundedNetMinutes &&
		s.BreakMinutes == other.BreakMinutes &&
		s.BreakDelayMinutes == other.BreakDelayMinutes &&
		s.NoBreakTaken == other.NoBreakTaken &&
		s.OvertimeMinutes == other.OvertimeMinutes &&
		s.LateMinutes == other.LateMinutes &&
		s.EarlyLeaveMinutes == other.EarlyLeaveMinutes &&
		s.Status == other.Status &&
		flagsEqual(s.Flags, other.Flags) &&
		reflect.DeepEqual(s.CalcMeta, other.CalcMeta)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func flagsEqual(a, b Flags) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CalcMeta is a diagnostic snapshot of one recalculation. It is stored as JSON
// for support tooling and is not a stable contract.
type CalcMeta struct {
	Reason         string        `json:"reason,omitempty"`
	DepartmentID   string        `json:"department_id,omitempty"`
	ShiftID        string        `json:"shift_id,omitempty"`
	ShiftSource    string        `json:"shift_source,omitempty"`
	Mode           string        `json:"mode,omitempty"`
	Virtual        bool          `json:"virtual,omitempty"`
	Segments       []SegmentMeta `json:"segments,omitempty"`
	ScheduledTotal int           `json:"scheduled_total"`
	TargetMinutes  int           `json:"target_minutes,omitempty"`
	GraceLate      int           `json:"grace_late"`
	GraceEarly     int           `json:"grace_early"`
	BreakRule      string        `json:"break_rule,omitempty"`
	BreakStartTime string        `json:"break_start_time,omitempty"`
	Counters       Counters      `json:"counters"`
}

type SegmentMeta struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	Minutes      int    `json:"minutes"`
	Overlap      int    `json:"overlap"`
	LateMinutes  int    `json:"late_minutes,omitempty"`
	EarlyMinutes int    `json:"early_minutes,omitempty"`
	Missed       bool   `json:"missed,omitempty"`
}

type Counters struct {
	Punches         int `json:"punches"`
	InOutPunches    int `json:"in_out_punches"`
	BreakPunches    int `json:"break_punches"`
	WorkedIntervals int `json:"worked_intervals"`
	BreakIntervals  int `json:"break_intervals"`
}

// Segment is a scheduled work interval for one concrete date.
type Segment struct {
	StartUTC   time.Time
	EndUTC     time.Time
	StartLocal time.Time
	EndLocal   time.Time
	Minutes    int
}

// Interval is a closed [Start, End) span reduced from punches.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

type EarlyLeaveStatus string

const (
	EarlyLeavePending  EarlyLeaveStatus = "pending"
	EarlyLeaveApproved EarlyLeaveStatus = "approved"
	EarlyLeaveRejected EarlyLeaveStatus = "rejected"
)

// EarlyLeaveRequest is opened automatically for a manager to approve when a
// left_early condition first appears on a session.
type EarlyLeaveRequest struct {
	ID               string
	EmployeeID       string
	SessionID        string
	RequestDate      time.Time
	ShortfallMinutes int
	ActualLeaveTime  *time.Time
	Reason           string
	Status           EarlyLeaveStatus
	ManagerID        *string
	CreatedAt        time.Time
}
