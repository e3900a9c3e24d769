package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
)

type ClassifyInput struct {
	TotalHours     bool
	SegmentCount   int
	Flags          attendance.Flags
	Net            int
	WorkedTotal    int
	PunchCount     int
	TargetMinutes  int
	LastOut        *time.Time
	NominalEnd     *time.Time
	CompanyHoliday bool
}

// Classify maps an evaluated day to exactly one status and returns the flags
// to report alongside it.
func Classify(in ClassifyInput) (attendance.Status, attendance.Flags) {
	if in.TotalHours {
		flags := in.Flags.Without(attendance.FlagLate).Without(attendance.FlagLeftEarly)
		switch {
		case in.PunchCount == 0:
			return holidayOr(in.CompanyHoliday, attendance.StatusAbsent), flags
		case flags.Has(attendance.FlagIncomplete):
			return attendance.StatusIncomplete, flags
		case in.Net < in.TargetMinutes && leftBeforeEnd(in.LastOut, in.NominalEnd):
			return attendance.StatusLeftEarly, flags.With(attendance.FlagLeftEarly)
		default:
			return attendance.StatusPresent, flags
		}
	}

	flags := in.Flags
	switch {
	case in.SegmentCount == 0:
		return holidayOr(in.CompanyHoliday, attendance.StatusDayOff), flags
	case flags.Has(attendance.FlagIncomplete):
		return attendance.StatusIncomplete, flags
	case flags.Has(attendance.FlagMissedSegment) && in.Net == 0:
		if in.PunchCount > 0 && in.WorkedTotal > 0 {
			return attendance.StatusIncomplete, flags
		}
		if in.PunchCount == 0 && in.CompanyHoliday {
			return attendance.StatusHoliday, flags
		}
		return attendance.StatusAbsent, flags
	case flags.Has(attendance.FlagMissedSegment):
		return attendance.StatusPresent, flags
	case flags.Has(attendance.FlagLeftEarly):
		return attendance.StatusLeftEarly, flags
	case flags.Has(attendance.FlagLate):
		return attendance.StatusLate, flags
	default:
		return attendance.StatusPresent, flags
	}
}

func holidayOr(holiday bool, status attendance.Status) attendance.Status {
	if holiday {
		return attendance.StatusHoliday
	}
	return status
}

func leftBeforeEnd(lastOut, nominalEnd *time.Time) bool {
	return lastOut != nil && nominalEnd != nil && lastOut.Before(*nominalEnd)
}
