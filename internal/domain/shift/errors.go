package shift

import "errors"

var (
	ErrShiftNotFound          = errors.New("shift not found")
	ErrShiftInactive          = errors.New("shift is inactive")
	ErrAssignmentNotFound     = errors.New("shift assignment not found")
	ErrDepartmentRuleNotFound = errors.New("department automation rule not found")
	ErrInvalidWeeklyOverride  = errors.New("invalid weekly override")
)
