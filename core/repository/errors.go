package repository

import "errors"

var (
	// ErrNoResult is returned when the requested record does not exist.
	ErrNoResult = errors.New("no result")
	// ErrUndefinedFetch is returned when stored records cannot be turned back into models.
	ErrUndefinedFetch = errors.New("undefined fetch failure")
	// ErrCreateFailed is returned when a model cannot be written to the store.
	ErrCreateFailed = errors.New("failed to create record")
)
