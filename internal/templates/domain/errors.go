package domain

import "errors"

var (
	ErrNotFound            = errors.New("template not found")
	ErrForbidden           = errors.New("template cannot be changed")
	ErrInvalidName         = errors.New("template name is required")
	ErrTooLarge            = errors.New("template definition is too large")
	ErrInvalidMilestone    = errors.New("invalid template milestone")
	ErrInvalidMilestoneKey = errors.New("milestone keys must be unique and non-empty")
	ErrUnknownMilestoneKey = errors.New("unknown milestone key")
	ErrInvalidTask         = errors.New("invalid template task")
)
