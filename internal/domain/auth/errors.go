package auth

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingEmployee    = errors.New("token carries no employee")
	ErrPrivilegedRequired = errors.New("manager or hr role required")
	ErrOtherEmployee      = errors.New("cannot access another employee's attendance")
)
