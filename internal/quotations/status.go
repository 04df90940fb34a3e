package quotations

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition rejects a status change the lifecycle does not
// permit. The check happens before any persistence call.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions encodes the quotation lifecycle: forward through
// New -> InProgress -> Closed, plus the single reopen path
// Closed -> InProgress. New is never reachable again once left.
var allowedTransitions = map[Status][]Status{
	StatusNew:        {StatusInProgress},
	StatusInProgress: {StatusClosed},
	StatusClosed:     {StatusInProgress},
}

// Transition validates a requested status change and returns the new
// status. Skipping a state or moving back to New fails with
// ErrInvalidTransition.
func Transition(current, requested Status) (Status, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, requested)
	}
	for _, next := range allowedTransitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
}
