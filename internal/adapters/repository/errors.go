package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrDuplicate         = errors.New("scored event already stored")
	ErrInvalidLimit      = errors.New("invalid listing limit")
	ErrUnsupportedScheme = errors.New("unsupported store url scheme")
)
