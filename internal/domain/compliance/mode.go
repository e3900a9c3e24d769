package compliance

import (
	"fmt"
	"strings"
)

// Mode controls when a punch must carry a live selfie / geo check.
type Mode string

const (
	ModeNever    Mode = "never"
	ModeOptional Mode = "optional"
	ModeInOnly   Mode = "in_only"
	ModeInOut    Mode = "in_out"
	ModeAll      Mode = "all"
)

var ModeValues = []string{
	string(ModeNever),
	string(ModeOptional),
	string(ModeInOnly),
	string(ModeInOut),
	string(ModeAll),
}

// Strength orders modes from weakest to strongest.
func (m Mode) Strength() int {
	switch m {
	case ModeNever:
		return 0
	case ModeOptional:
		return 1
	case ModeInOnly:
		return 2
	case ModeInOut:
		return 3
	case ModeAll:
		return 4
	}
	return -1
}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Strength() < 0 {
		return "", fmt.Errorf("invalid compliance mode %q", s)
	}
	return m, nil
}

// Input identifies the context of a punch for mode resolution. Empty ids skip
// that precedence level.
type Input struct {
	EmployeeID          string
	DepartmentID        string
	DeviceID            string
	ShiftRequiresSelfie bool
}

// Gate resolves the effective selfie/geo compliance mode for a punch.
type Gate interface {
	Resolve(in Input) Mode
}
