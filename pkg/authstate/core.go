package authstate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/ency/pkg/broadcast"
	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/profilestore"
	"github.com/dmitrymomot/ency/pkg/statemachine"
)

// ProfileStore reads and writes profile documents. Get returns
// profilestore.ErrNotFound when no document exists.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*profilestore.Profile, error)
	Set(ctx context.Context, uid string, p profilestore.Profile) error
}

// Core holds the current State and runs the auth actions.
type Core struct {
	provider identity.Provider
	store    ProfileStore
	log      *slog.Logger
	validate bool
	buffer   int

	ctx    context.Context
	cancel context.CancelFunc

	machine *statemachine.Machine
	states  *broadcast.MemoryBroadcaster[State]
	state   atomic.Pointer[State]

	// mu serialises every replacement of the current state.
	mu      sync.Mutex
	user    User
	gen     uint64
	loading bool
	pending int

	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	closeOnce   sync.Once
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger for auth events and action failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.log = l
		}
	}
}

// WithoutInputValidation skips the sign-up and sign-in form rules and leaves
// input checking to the provider.
func WithoutInputValidation() Option {
	return func(c *Core) { c.validate = false }
}

// WithSubscriberBuffer sets how many undelivered snapshots a subscriber may
// hold before the oldest is dropped.
func WithSubscriberBuffer(n int) Option {
	return func(c *Core) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// New creates a Core and registers its observer with provider.
func New(provider identity.Provider, store ProfileStore, opts ...Option) *Core {
	c := &Core{
		provider: provider,
		store:    store,
		log:      logger.Discard(),
		validate: true,
		buffer:   16,
		loading:  true,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("authstate"))
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.states = broadcast.NewMemoryBroadcaster[State](c.buffer, broadcast.WithReplayLast())
	c.machine = newPhaseMachine(c.log)

	c.mu.Lock()
	c.fire(c.ctx, eventBegin)
	c.publishLocked()
	c.mu.Unlock()

	c.unsubscribe = provider.OnAuthStateChanged(c.onAuthStateChanged)
	return c
}

// State returns the current snapshot.
func (c *Core) State() State {
	return *c.state.Load()
}

// User returns the current user, empty when signed out.
func (c *Core) User() User {
	return c.state.Load().User
}

// IsLoading reports whether the provider has not reported the initial session yet.
func (c *Core) IsLoading() bool {
	return c.state.Load().IsLoading
}

// Phase returns the current session phase.
func (c *Core) Phase() Phase {
	return c.state.Load().Phase
}

// WaitReady blocks until the provider has reported the initial session and
// its stored profile, if any, has been merged.
func (c *Core) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe delivers the current snapshot and every later one until ctx is
// done or the Core is closed. A slow subscriber loses the oldest snapshots.
func (c *Core) Subscribe(ctx context.Context) broadcast.Subscriber[State] {
	return c.states.Subscribe(ctx)
}

// Close unregisters the provider observer and ends every subscription.
func (c *Core) Close() error {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.cancel()
		_ = c.states.Close()
	})
	return nil
}

func (c *Core) onAuthStateChanged(pu *identity.User) {
	ctx := c.ctx

	c.mu.Lock()
	var gen uint64
	if pu == nil {
		gen = c.replaceLocked(User{})
	} else {
		gen = c.replaceLocked(User{UID: pu.UID, Email: pu.Email, IsVerified: pu.EmailVerified})
	}
	first := c.loading
	c.loading = false
	c.settleLocked(ctx)
	c.publishLocked()
	c.mu.Unlock()

	if pu != nil {
		c.fetchProfile(ctx, pu, gen)
	}

	if first {
		c.readyOnce.Do(func() { close(c.ready) })
		c.log.DebugContext(ctx, "initial session resolved", slog.Bool("authenticated", pu != nil))
	}
}

// replaceLocked swaps the current user and returns the new generation.
// Profile fetches started for an older generation are discarded.
func (c *Core) replaceLocked(u User) uint64 {
	c.user = u
	c.gen++
	return c.gen
}

// replace swaps the user and publishes the new snapshot.
func (c *Core) replace(u User) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.replaceLocked(u)
	c.publishLocked()
	return gen
}

func (c *Core) publishLocked() {
	s := &State{
		User:      c.user,
		IsLoading: c.loading,
		Phase:     Phase(c.machine.Current().Name()),
	}
	c.state.Store(s)
	_ = c.states.Broadcast(c.ctx, broadcast.Message[State]{Data: *s})
}

func (c *Core) fire(ctx context.Context, ev statemachine.StringEvent) {
	if err := c.machine.Fire(ctx, ev, c.user); err != nil {
		c.log.DebugContext(ctx, "phase transition skipped", slog.String("event", ev.Name()), logger.Error(err))
	}
}

// settleLocked resolves the phase from the current user once no action is
// in flight and the initial session is known.
func (c *Core) settleLocked(ctx context.Context) {
	if c.pending == 0 && !c.loading {
		c.fire(ctx, eventSettle)
	}
}

// begin marks an action as in flight; the returned func settles it.
func (c *Core) begin(ctx context.Context) func() {
	c.mu.Lock()
	c.pending++
	c.fire(ctx, eventBegin)
	c.publishLocked()
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.pending--
		c.settleLocked(ctx)
		c.publishLocked()
		c.mu.Unlock()
	}
}
