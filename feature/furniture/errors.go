package furniture

import "errors"

var (
	// ErrItemNotFound is returned when the gamedata has no item with the requested classname.
	ErrItemNotFound = errors.New("furniture item not found")
	// ErrInvalidGamedata is returned when the gamedata object cannot be decoded.
	ErrInvalidGamedata = errors.New("invalid furniture gamedata")
	// ErrNotLoaded is returned by a feature whose service has not been started.
	ErrNotLoaded = errors.New("furniture feature is not loaded")
)
