package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// anyState keys wildcard transitions. It cannot collide with a real state
// name because State names never contain NUL.
const anyState = "\x00*"

// Machine is the in-memory StateMachine implementation.
type Machine struct {
	initial     State
	current     State
	transitions map[string]map[string][]Transition
	listeners   []Listener
	mu          sync.RWMutex
}

func newMachine(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

func (m *Machine) add(from string, to State, event Event, opts []TransitionOption) error {
	if to == nil || event == nil {
		return ErrInvalidTransition
	}

	t := Transition{To: to, Event: event}
	for _, opt := range opts {
		opt(&t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[from]; !ok {
		m.transitions[from] = make(map[string][]Transition)
	}
	m.transitions[from][event.Name()] = append(m.transitions[from][event.Name()], t)
	return nil
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies event. State-specific transitions are tried before wildcard
// ones, each group in registration order.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.current
	t, err := m.match(ctx, from, event, data)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("statemachine: action failed: %w", err)
		}
	}
	m.current = t.To
	listeners := m.listeners
	m.mu.Unlock()

	for _, l := range listeners {
		l(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire would find an allowed transition.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, m.current, event, data)
	return err == nil
}

// Reset returns the machine to its initial state without running actions
// or listeners.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func (m *Machine) match(ctx context.Context, from State, event Event, data any) (Transition, error) {
	candidates := append([]Transition{}, m.transitions[from.Name()][event.Name()]...)
	candidates = append(candidates, m.transitions[anyState][event.Name()]...)
	if len(candidates) == 0 {
		return Transition{}, &NoTransitionError{State: from.Name(), Event: event.Name()}
	}

	for _, t := range candidates {
		if guardsPass(ctx, t.Guards, from, event, data) {
			t.From = from
			return t, nil
		}
	}
	return Transition{}, &RejectedError{State: from.Name(), Event: event.Name()}
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}

var _ StateMachine = (*Machine)(nil)
