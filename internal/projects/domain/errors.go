package domain

import "errors"

var (
	// ErrNotFound also covers projects the caller is not a member of.
	ErrNotFound        = errors.New("project not found")
	ErrForbidden       = errors.New("insufficient project role")
	ErrInvalidName     = errors.New("project name is required")
	ErrInvalidStatus   = errors.New("invalid project status")
	ErrInvalidPriority = errors.New("invalid project priority")
	ErrInvalidDates    = errors.New("due date must not be before start date")
	ErrInvalidRole     = errors.New("invalid member role")
	ErrUserNotFound    = errors.New("no user with that email")
	ErrMemberExists    = errors.New("user is already a member")
	ErrMemberNotFound  = errors.New("member not found")
	ErrOwnerRemoval    = errors.New("the project owner cannot be removed or demoted")
)
