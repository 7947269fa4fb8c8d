package provider

import "errors"

var (
	// ErrUnexpectedResult is returned when a source or the cache produced a result the
	// round cannot use.
	ErrUnexpectedResult = errors.New("unexpected result")
	// ErrDuplicateObserver is returned when a live token is registered a second time.
	ErrDuplicateObserver = errors.New("observer already registered")
	// ErrObserverNotFound is returned when removing a token that is not registered.
	ErrObserverNotFound = errors.New("observer not found")
	// ErrNoItemSource is returned by FetchByID when the source cannot fetch single items.
	ErrNoItemSource = errors.New("source does not support fetch by id")
	// ErrNoPageSource is returned by FetchPage when the source cannot fetch pages.
	ErrNoPageSource = errors.New("source does not support fetch by page")
	// ErrClosed is returned once the provider is closed.
	ErrClosed = errors.New("provider closed")
)
