package sync

import "errors"

var (
	ErrSchedulerRunning = errors.New("scheduler already running")
	ErrInvalidInterval  = errors.New("sync interval must be positive")
	// ErrUnsendable запись нельзя превратить в запрос; повтор ничего не изменит
	ErrUnsendable = errors.New("mutation cannot be sent")
)
