package errs

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBusy signals that an upload batch is currently being analyzed.
	ErrBusy = errors.New("analysis in progress")
	// ErrDuplicate signals an archive name that was already processed.
	ErrDuplicate = errors.New("duplicate archive")
)
