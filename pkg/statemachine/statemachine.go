package statemachine

import "context"

// State is a node of the machine.
type State interface {
	Name() string
}

// Event triggers transitions.
type Event interface {
	Name() string
}

// Action runs during a transition. Returning an error prevents it.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may proceed for the given data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Listener observes completed transitions.
type Listener func(from, to State, event Event)

// Transition is one edge of the machine.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StateMachine is the public contract of the machine.
type StateMachine interface {
	Current() State
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
	Reset()
}

// StringState is a State backed by a string.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is an Event backed by a string.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
