package domain

import "errors"

var (
	ErrNotFound            = errors.New("automation rule not found")
	ErrInvalidName         = errors.New("rule name is required")
	ErrInvalidTrigger      = errors.New("invalid trigger")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidTriggerValue = errors.New("trigger value does not fit the trigger")
	ErrInvalidActionValue  = errors.New("action value does not fit the action")
)
