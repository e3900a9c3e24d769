package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

// BuildSegments converts a resolved shift into scheduled UTC segments for the
// local calendar date. Day off, total-hours mode and shifts without start/end
// produce no segments.
func BuildSegments(resolved *shift.Resolved, date time.Time, loc *time.Location) []attendance.Segment {
	if resolved == nil || resolved.Kind == shift.KindTotalHours {
		return nil
	}
	if len(resolved.SplitWindows) > 0 {
		return BuildSplitSegments(resolved.SplitWindows, date, loc)
	}

	seg, ok := NominalSegment(resolved, date, loc)
	if !ok {
		return nil
	}
	return []attendance.Segment{seg}
}

// BuildSplitSegments builds one segment per department split-schedule window.
func BuildSplitSegments(windows []shift.TimeWindow, date time.Time, loc *time.Location) []attendance.Segment {
	var segments []attendance.Segment
	for _, w := range windows {
		segments = append(segments, buildSegment(w.Start, w.End, date, loc))
	}
	return segments
}

// NominalSegment is the shift's start/end interval regardless of policy mode.
// Total-hours shifts use it for the nominal end time and the punch window.
func NominalSegment(resolved *shift.Resolved, date time.Time, loc *time.Location) (attendance.Segment, bool) {
	start, end := resolved.StartEnd()
	if start == nil || end == nil {
		return attendance.Segment{}, false
	}
	return buildSegment(*start, *end, date, loc), true
}

func buildSegment(start, end shift.TimeOfDay, date time.Time, loc *time.Location) attendance.Segment {
	startLocal := start.On(date, loc)
	endLocal := end.On(date, loc)
	if !endLocal.After(startLocal) {
		// overnight
		endLocal = end.On(date.AddDate(0, 0, 1), loc)
	}

	startUTC := startLocal.UTC()
	endUTC := endLocal.UTC()

	return attendance.Segment{
		StartUTC:   startUTC,
		EndUTC:     endUTC,
		StartLocal: startLocal,
		EndLocal:   endLocal,
		Minutes:    roundMinutes(endUTC.Sub(startUTC)),
	}
}

// DayWindow returns the UTC punch window for a local work date: local midnight
// to the next local midnight, extended past the last segment end by
// overnightWindow when a segment crosses midnight.
func DayWindow(date time.Time, loc *time.Location, segments []attendance.Segment, overnightWindow time.Duration) (time.Time, time.Time) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	to := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)

	for _, seg := range segments {
		if seg.EndUTC.After(to) {
			if extended := seg.EndUTC.Add(overnightWindow); extended.After(to) {
				to = extended
			}
		}
	}
	return from.UTC(), to.UTC()
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
