package domain

import "errors"

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTitle      = errors.New("task title is required")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrInvalidPriority   = errors.New("invalid task priority")
	ErrInvalidEstimate   = errors.New("estimate must not be negative")
	ErrAssigneeNotMember = errors.New("assignee is not a project member")
	ErrMilestoneMismatch = errors.New("milestone does not belong to this project")
	ErrInvalidFilter     = errors.New("assignee and milestone filters must be ids")
)
