package snapshot

import "errors"

var (
	ErrUnknownFamily = errors.New("unknown family")
	ErrInvalidFamily = errors.New("invalid family definition")
	ErrNotFound      = errors.New("snapshot record not found")
	ErrMissingID     = errors.New("listing item has no id")
)
