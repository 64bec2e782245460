package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrNoMappings      = errors.New("profile has no column mappings")
	ErrNoActiveProfile = errors.New("no active profile")
	ErrInvalidFilter   = errors.New("invalid filter rule")
)
