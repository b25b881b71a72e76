package mutation

import "errors"

var (
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrNotFound        = errors.New("mutation not found")
)
