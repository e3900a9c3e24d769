package attendance

import (
	"github.com/shopspring/decimal"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/policy"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/shift"
)

// Break rules recorded in calc meta.
const (
	BreakRuleActual           = "actual"
	BreakRuleMandatory        = "mandatory"
	BreakRuleMandatoryPunched = "mandatory_punched"
)

type BreakInput struct {
	// Template is nil when no shift resolved.
	Template       *shift.Template
	TotalHours     bool
	Punches        []punch.Punch
	Reduction      Reduction
	ScheduledTotal int
	TargetMinutes  int
	PolicyBreak    policy.BreakSettings
}

type BreakResult struct {
	Rule           string
	ActualBreak    int
	BreakDeduction int
	BreakDelay     int
	NoBreakTaken   bool
	Net            int
	RoundedNet     int
	Overtime       int
	Flags          attendance.Flags
}

// AdjustBreaks applies the shift's break policy, the total-hours policy break,
// rounding and overtime.
func AdjustBreaks(in BreakInput) BreakResult {
	res := BreakResult{ActualBreak: in.Reduction.BreakMinutes}
	mandatory := in.Template != nil && in.Template.HasMandatoryBreak()

	switch {
	case !mandatory || len(in.Punches) == 0:
		res.Rule = BreakRuleActual
		res.BreakDeduction = in.Reduction.BreakMinutes

	case isKioskDay(in.Punches) || in.Reduction.BreakPunchCount == 0:
		res.Rule = BreakRuleMandatory
		res.BreakDeduction = in.Template.UnpaidBreakMinutes
		if in.Reduction.BreakPunchCount == 0 && isSelfServiceDay(in.Punches) {
			res.NoBreakTaken = true
		}

	default:
		res.Rule = BreakRuleMandatoryPunched
		configured := in.Template.UnpaidBreakMinutes
		res.BreakDelay = max(0, in.Reduction.BreakMinutes-configured)
		res.BreakDeduction = configured + res.BreakDelay
	}

	if in.TotalHours && !mandatory && in.PolicyBreak.Enabled && in.PolicyBreak.DurationMinutes > 0 {
		res.BreakDeduction += in.PolicyBreak.DurationMinutes
	}

	res.Net = max(0, in.Reduction.WorkedMinutes-res.BreakDeduction)

	rule := 0
	if in.Template != nil {
		rule = in.Template.RoundingRule
	}
	res.RoundedNet = RoundToRule(res.Net, rule)

	switch {
	case in.TotalHours:
		res.Overtime = max(0, res.RoundedNet-in.TargetMinutes)
	case in.Template != nil && in.Template.OvertimeAfterMinutes > 0:
		res.Overtime = max(0, res.RoundedNet-in.Template.OvertimeAfterMinutes)
	default:
		res.Overtime = max(0, res.RoundedNet-in.ScheduledTotal)
	}

	if res.BreakDelay > 0 {
		res.Flags = res.Flags.With(attendance.FlagBreakDelay)
	}
	if res.NoBreakTaken {
		res.Flags = res.Flags.With(attendance.FlagNoBreakTaken)
	}
	return res
}

// RoundToRule rounds minutes half-up to the nearest multiple of 5, 10 or 15.
// Any other rule leaves the value unchanged.
func RoundToRule(minutes, rule int) int {
	switch rule {
	case 5, 10, 15:
	default:
		return minutes
	}
	step := decimal.NewFromInt(int64(rule))
	return int(decimal.NewFromInt(int64(minutes)).Div(step).Round(0).Mul(step).IntPart())
}

// TargetMinutes converts fractional policy hours to whole minutes, half-up.
func TargetMinutes(hours float64) int {
	return int(decimal.NewFromFloat(hours).Mul(decimal.NewFromInt(60)).Round(0).IntPart())
}

// isKioskDay reports whether every in/out punch came from a kiosk.
func isKioskDay(punches []punch.Punch) bool {
	seen := false
	for _, p := range punches {
		if p.Type.IsBreak() {
			continue
		}
		if p.Source != punch.SourceKiosk {
			return false
		}
		seen = true
	}
	return seen
}

// isSelfServiceDay reports whether the employee clocked in or out from their
// own device at least once.
func isSelfServiceDay(punches []punch.Punch) bool {
	for _, p := range punches {
		if !p.Type.IsBreak() && p.Source.IsSelfService() {
			return true
		}
	}
	return false
}
