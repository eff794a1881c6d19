package models

import dErrors "namemint/pkg/domain-errors"

// Status is the lifecycle state of a season.
//
// Transitions are monotonic: draft->active, draft->cancelled, active->ended,
// active->cancelled. Ended and cancelled are terminal. No backward transition
// is ever permitted.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// validTransitions is the single source of truth for the state machine.
var validTransitions = map[Status][]Status{
	StatusDraft:     {StatusActive, StatusCancelled},
	StatusActive:    {StatusEnded, StatusCancelled},
	StatusEnded:     {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the transition is in the allowed set.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition exists.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusActive, StatusEnded, StatusCancelled:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown season status")
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
