package domain

import "errors"

var (
	ErrNotFound      = errors.New("milestone not found")
	ErrInvalidTitle  = errors.New("milestone title is required")
	ErrInvalidStatus = errors.New("invalid milestone status")
)
