// Package statemachine is a small, concurrency-safe finite state machine.
//
// Transitions are keyed by (from state, event). Several transitions may share
// a key; the first one whose guards all pass wins, which is how a single
// event can branch to different targets depending on the event data.
// WithAnyStateTransition registers a transition that applies from every state
// unless a state-specific transition for the same event matches first.
//
//	const (
//		SignedOut = statemachine.StringState("signed_out")
//		SignedIn  = statemachine.StringState("signed_in")
//		Login     = statemachine.StringEvent("login")
//	)
//
//	sm := statemachine.MustNew(SignedOut,
//		statemachine.WithTransition(SignedOut, SignedIn, Login),
//		statemachine.WithListener(func(from, to statemachine.State, ev statemachine.Event) {
//			log.Printf("%s -> %s on %s", from.Name(), to.Name(), ev.Name())
//		}),
//	)
//	err := sm.Fire(ctx, Login, nil)
//
// Actions run before the state changes; an action error aborts the
// transition. Listeners run after the change, outside the lock.
package statemachine
