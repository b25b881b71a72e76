package entity

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidFamily = errors.New("unknown entity family")
	ErrUnknownView   = errors.New("unknown view")
	ErrInvalidData   = errors.New("invalid entity data")
)
