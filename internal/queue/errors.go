package queue

import "errors"

var (
	ErrJobNotFound  = errors.New("jobq: job not found")
	ErrNotPending   = errors.New("jobq: job is not pending")
	ErrEmptyCommand = errors.New("jobq: command is empty")
)
