package authstate

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/ency/pkg/statemachine"
)

// Phase is the session state.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticating  Phase = "authenticating"
	PhaseAuthenticated   Phase = "authenticated"
)

func (p Phase) Name() string { return string(p) }

const (
	eventBegin   = statemachine.StringEvent("begin")
	eventSettle  = statemachine.StringEvent("settle")
	eventSignOut = statemachine.StringEvent("sign_out")
)

// newPhaseMachine builds the session machine. Settling picks the target from
// the user passed as event data.
func newPhaseMachine(log *slog.Logger) *statemachine.Machine {
	hasUser := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		u, ok := data.(User)
		return ok && u.IsAuthenticated()
	}
	noUser := func(ctx context.Context, from statemachine.State, ev statemachine.Event, data any) bool {
		return !hasUser(ctx, from, ev, data)
	}

	return statemachine.MustNew(PhaseUnauthenticated,
		statemachine.WithAnyStateTransition(PhaseAuthenticating, eventBegin),
		statemachine.WithAnyStateTransition(PhaseAuthenticated, eventSettle, statemachine.WithGuard(hasUser)),
		statemachine.WithAnyStateTransition(PhaseUnauthenticated, eventSettle, statemachine.WithGuard(noUser)),
		statemachine.WithAnyStateTransition(PhaseUnauthenticated, eventSignOut),
		statemachine.WithListener(func(from, to statemachine.State, ev statemachine.Event) {
			if from.Name() != to.Name() {
				log.Debug("session phase changed",
					slog.String("from", from.Name()),
					slog.String("to", to.Name()),
					slog.String("event", ev.Name()))
			}
		}),
	)
}
