package domain

import "errors"

var (
	ErrNotFound     = errors.New("attachment not found")
	ErrTooLarge     = errors.New("attachment exceeds the size limit")
	ErrEmptyFile    = errors.New("attachment is empty")
	ErrInvalidName  = errors.New("invalid file name")
	ErrTaskMismatch = errors.New("task does not belong to this project")
	ErrBlobNotFound = errors.New("attachment content missing")
	ErrInvalidTask  = errors.New("task_id must be a task id")
)
