package employee

import (
	"regexp"
	"strings"
	"time"
)

type Employee struct {
	ID               string
	EmployeeCode     string
	FullName         string
	DepartmentID     *string
	ManagerID        *string
	Role             string
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

type Department struct {
	ID   string
	Name string
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slug is the legacy department key used by older automation rules.
func (d Department) Slug() string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(d.Name)), "-")
	return strings.Trim(s, "-")
}
