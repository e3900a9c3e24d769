package punch

import "time"

type Type string

const (
	TypeIn         Type = "in"
	TypeOut        Type = "out"
	TypeBreakStart Type = "break_start"
	TypeBreakEnd   Type = "break_end"
)

var TypeValues = []string{
	string(TypeIn),
	string(TypeOut),
	string(TypeBreakStart),
	string(TypeBreakEnd),
}

func (t Type) Valid() bool {
	switch t {
	case TypeIn, TypeOut, TypeBreakStart, TypeBreakEnd:
		return true
	}
	return false
}

// IsBreak reports whether the punch is a break_start or break_end.
func (t Type) IsBreak() bool {
	return t == TypeBreakStart || t == TypeBreakEnd
}

type Source string

const (
	SourceSelfWeb       Source = "self_web"
	SourceSelfMobile    Source = "self_mobile"
	SourceKiosk         Source = "kiosk"
	SourceManagerAdjust Source = "manager_adjust"
	SourceImportSync    Source = "import_sync"
)

var SourceValues = []string{
	string(SourceSelfWeb),
	string(SourceSelfMobile),
	string(SourceKiosk),
	string(SourceManagerAdjust),
	string(SourceImportSync),
}

func (s Source) Valid() bool {
	switch s {
	case SourceSelfWeb, SourceSelfMobile, SourceKiosk, SourceManagerAdjust, SourceImportSync:
		return true
	}
	return false
}

// IsSelfService reports punches made by the employee on their own device.
func (s Source) IsSelfService() bool {
	return s == SourceSelfWeb || s == SourceSelfMobile
}

// Punch is an immutable clock event. Rows are append-only.
type Punch struct {
	ID          string
	EmployeeID  string
	Type        Type
	PunchedAt   time.Time // UTC
	Source      Source
	DeviceID    *string
	Latitude    *float64
	Longitude   *float64
	GeoValid    *bool
	SelfieRef   *string
	SelfieValid *bool
	CreatedAt   time.Time
}
