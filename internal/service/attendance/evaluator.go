package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
)

type SegmentDetail struct {
	Segment        attendance.Segment
	OverlapMinutes int
	LateMinutes    int
	EarlyMinutes   int
	Missed         bool
}

type Evaluation struct {
	// WorkedTotal is the reducer's total, so work outside the schedule is credited.
	WorkedTotal    int
	ScheduledTotal int
	LateMinutes    int
	EarlyMinutes   int
	Flags          attendance.Flags
	Segments       []SegmentDetail
}

// EvaluateSegments overlaps worked intervals against scheduled segments.
func EvaluateSegments(segments []attendance.Segment, red Reduction, graceLateMinutes, graceEarlyMinutes int) Evaluation {
	ev := Evaluation{WorkedTotal: red.WorkedMinutes}

	graceLate := time.Duration(graceLateMinutes) * time.Minute
	graceEarly := time.Duration(graceEarlyMinutes) * time.Minute

	for _, seg := range segments {
		ev.ScheduledTotal += seg.Minutes
		detail := SegmentDetail{Segment: seg}

		var (
			overlap    time.Duration
			firstStart *time.Time
			lastEnd    *time.Time
		)
		for _, iv := range red.Worked {
			o := overlapOf(seg.StartUTC, seg.EndUTC, iv.Start, iv.End)
			if o <= 0 {
				continue
			}
			overlap += o
			if firstStart == nil || iv.Start.Before(*firstStart) {
				s := iv.Start
				firstStart = &s
			}
			if lastEnd == nil || iv.End.After(*lastEnd) {
				e := iv.End
				lastEnd = &e
			}
		}
		detail.OverlapMinutes = roundMinutes(overlap)

		if overlap <= 0 {
			detail.Missed = true
			ev.Flags = ev.Flags.With(attendance.FlagMissedSegment)
			ev.Segments = append(ev.Segments, detail)
			continue
		}

		if firstStart.After(seg.StartUTC.Add(graceLate)) {
			if late := roundMinutes(firstStart.Sub(seg.StartUTC)); late > 0 {
				detail.LateMinutes = late
				ev.LateMinutes += late
				ev.Flags = ev.Flags.With(attendance.FlagLate)
			}
		}

		if lastEnd.Before(seg.EndUTC.Add(-graceEarly)) {
			if early := roundMinutes(seg.EndUTC.Sub(*lastEnd)); early > 0 {
				detail.EarlyMinutes = early
				ev.EarlyMinutes += early
				ev.Flags = ev.Flags.With(attendance.FlagLeftEarly)
			}
		}

		ev.Segments = append(ev.Segments, detail)
	}

	if red.Incomplete {
		ev.Flags = ev.Flags.With(attendance.FlagIncomplete)
	}
	return ev
}

func overlapOf(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if d := end.Sub(start); d > 0 {
		return d
	}
	return 0
}
