package database

import "errors"

var (
	// ErrInvalidConfig is returned for configurations the engine cannot open.
	ErrInvalidConfig = errors.New("invalid storage configuration")
	// ErrInitializing is returned by Close while the engine is still opening.
	ErrInitializing = errors.New("storage is initializing")
	// ErrNotClosed is returned by Drop while the engine is open.
	ErrNotClosed = errors.New("storage must be closed before it is dropped")
	// ErrClosed is returned for work submitted to a closed engine.
	ErrClosed = errors.New("storage closed")
	// ErrSchemaMismatch is returned by CheckSchema when the records table is incomplete.
	ErrSchemaMismatch = errors.New("storage schema mismatch")
	// ErrDropUnsupported is returned by Drop for stores that cannot be erased locally.
	ErrDropUnsupported = errors.New("drop is not supported for this store")
)
