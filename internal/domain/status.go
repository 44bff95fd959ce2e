package domain

import "fmt"

// ProcessingStatus is the lifecycle state of a study or series.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "Pending"
	StatusProcessing ProcessingStatus = "Processing"
	StatusSuccess    ProcessingStatus = "Success"
	StatusFailure    ProcessingStatus = "Failure"
)

func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailure:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// CanTransitionTo enumerates the allowed edges of the state machine:
// Pending -> Processing, Processing -> Success, Processing -> Failure.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusSuccess || next == StatusFailure
	case StatusSuccess, StatusFailure:
		return false
	}
	return false
}

// Transition validates the edge before returning the new status.
func (s ProcessingStatus) Transition(next ProcessingStatus) (ProcessingStatus, error) {
	if !next.Valid() {
		return s, fmt.Errorf("unknown processing status %q", string(next))
	}
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("illegal status transition %s -> %s", string(s), string(next))
	}
	return next, nil
}
