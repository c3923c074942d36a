package statemachine

import "fmt"

// Option configures a machine at construction.
type Option func(*Machine) error

// TransitionOption attaches guards or actions to one transition.
type TransitionOption func(*Transition)

// New builds a machine starting at initial.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == nil {
		return nil, ErrNilInitialState
	}
	m := newMachine(initial)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on misconfiguration.
func MustNew(initial State, opts ...Option) *Machine {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition adds an edge from -> to on event.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		if from == nil {
			return ErrInvalidTransition
		}
		return m.add(from.Name(), to, event, opts)
	}
}

// WithAnyStateTransition adds an edge to `to` on event from every state.
func WithAnyStateTransition(to State, event Event, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		return m.add(anyState, to, event, opts)
	}
}

// WithListener registers a callback invoked after each transition.
func WithListener(l Listener) Option {
	return func(m *Machine) error {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard(g Guard) TransitionOption {
	return func(t *Transition) {
		if g != nil {
			t.Guards = append(t.Guards, g)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction(a Action) TransitionOption {
	return func(t *Transition) {
		if a != nil {
			t.Actions = append(t.Actions, a)
		}
	}
}
