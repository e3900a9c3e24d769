package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
)

// Reduction is the result of scanning one day's punches.
type Reduction struct {
	Worked []attendance.Interval
	Breaks []attendance.Interval
	// Incomplete is set when an in punch was never closed.
	Incomplete bool

	// WorkedMinutes is the authoritative actual-worked figure, independent of
	// any schedule.
	WorkedMinutes int
	BreakMinutes  int

	FirstIn *time.Time
	// LastOut is the latest out after the first in, closing or not.
	LastOut *time.Time

	PunchCount      int
	InOutPunchCount int
	BreakPunchCount int
}

// ReducePunches reduces punches into worked and break intervals with a single
// forward scan. Inconsistent data is absorbed: repeated in punches keep the
// first, an out closes only a strictly earlier in, and open breaks are dropped.
func ReducePunches(punches []punch.Punch) Reduction {
	ordered := make([]punch.Punch, len(punches))
	copy(ordered, punches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PunchedAt.Before(ordered[j].PunchedAt)
	})

	var (
		r         Reduction
		openIn    *time.Time
		openBreak *time.Time
		workedDur time.Duration
		breakDur  time.Duration
	)
	r.PunchCount = len(ordered)

	for _, p := range ordered {
		at := p.PunchedAt
		switch p.Type {
		case punch.TypeIn:
			r.InOutPunchCount++
			if r.FirstIn == nil {
				first := at
				r.FirstIn = &first
			}
			if openIn == nil {
				start := at
				openIn = &start
			}

		case punch.TypeOut:
			r.InOutPunchCount++
			if r.FirstIn != nil && at.After(*r.FirstIn) {
				last := at
				r.LastOut = &last
			}
			if openIn != nil && at.After(*openIn) {
				iv := attendance.Interval{Start: *openIn, End: at}
				r.Worked = append(r.Worked, iv)
				workedDur += iv.Duration()
				openIn = nil
			}

		case punch.TypeBreakStart:
			r.BreakPunchCount++
			if openBreak == nil {
				start := at
				openBreak = &start
			}

		case punch.TypeBreakEnd:
			r.BreakPunchCount++
			if openBreak != nil && at.After(*openBreak) {
				iv := attendance.Interval{Start: *openBreak, End: at}
				r.Breaks = append(r.Breaks, iv)
				breakDur += iv.Duration()
				openBreak = nil
			}
		}
	}

	r.Incomplete = openIn != nil
	r.WorkedMinutes = roundMinutes(workedDur)
	r.BreakMinutes = roundMinutes(breakDur)
	return r
}
