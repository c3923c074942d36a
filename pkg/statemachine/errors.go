package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: from, to and event are required")
	ErrInvalidEvent      = errors.New("statemachine: event is required")
	ErrNilInitialState   = errors.New("statemachine: initial state is required")
)

// NoTransitionError reports that no edge is defined for the state/event pair.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("statemachine: no transition from %q on %q", e.State, e.Event)
}

// RejectedError reports that every candidate edge was blocked by a guard.
type RejectedError struct {
	State string
	Event string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("statemachine: transition from %q on %q rejected by guards", e.State, e.Event)
}

func IsNoTransition(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *RejectedError
	return errors.As(err, &e)
}
