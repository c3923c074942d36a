package authstate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/profilestore"
)

const (
	opSignUp    = "sign_up"
	opSignIn    = "sign_in"
	opFederated = "sign_in_federated"
	opSignOut   = "sign_out"
	opReload    = "reload"
)

// SignUp creates the credential, requests the verification email, writes
// the profile document and makes the new account the current user.
//
// A failed verification email is logged and does not fail the sign-up. When
// the profile write fails the error has KindStore and the current user is
// left to whatever the provider reports for its session.
func (c *Core) SignUp(ctx context.Context, in SignUpInput) (User, error) {
	in.normalize()
	if c.validate {
		if err := in.Validate(); err != nil {
			return User{}, c.fail(ctx, opSignUp, err)
		}
	}

	done := c.begin(ctx)
	defer done()

	pu, err := c.provider.CreateUserWithEmailAndPassword(ctx, in.Email, in.Password)
	if err != nil {
		return User{}, c.fail(ctx, opSignUp, err)
	}
	if pu == nil || pu.UID == "" {
		return User{}, c.fail(ctx, opSignUp, ErrNoUser)
	}

	if err := c.provider.SendEmailVerification(ctx); err != nil {
		c.log.WarnContext(ctx, "verification email not sent",
			logger.Op(opSignUp), logger.UID(pu.UID), logger.Error(err))
	}

	u, err := c.createProfile(ctx, opSignUp, User{
		UID:        pu.UID,
		Email:      in.Email,
		Name:       in.Name,
		IsVerified: pu.EmailVerified,
	})
	if err != nil {
		return User{}, err
	}

	c.replace(u)
	c.log.InfoContext(ctx, "signed up", logger.Op(opSignUp), logger.UID(u.UID))
	return u, nil
}

// SignIn authenticates with email and password, then merges the stored
// profile into the current user before returning it. A failed profile read
// is logged and leaves the live session fields in place.
func (c *Core) SignIn(ctx context.Context, in SignInInput) (User, error) {
	in.normalize()
	if c.validate {
		if err := in.Validate(); err != nil {
			return User{}, c.fail(ctx, opSignIn, err)
		}
	}

	done := c.begin(ctx)
	defer done()

	pu, err := c.provider.SignInWithEmailAndPassword(ctx, in.Email, in.Password)
	if err != nil {
		return User{}, c.fail(ctx, opSignIn, err)
	}
	if pu == nil || pu.UID == "" {
		return User{}, c.fail(ctx, opSignIn, ErrNoUser)
	}

	gen := c.replace(User{UID: pu.UID, Email: pu.Email, IsVerified: pu.EmailVerified})
	u := c.fetchProfile(ctx, pu, gen)

	c.log.InfoContext(ctx, "signed in", logger.Op(opSignIn), logger.UID(pu.UID))
	if u.UID != pu.UID {
		// Replaced by a concurrent action or sign-out while fetching.
		return User{UID: pu.UID, Email: pu.Email, IsVerified: pu.EmailVerified}, nil
	}
	return u, nil
}

// SignInWithFederatedIdentity runs the provider's federated flow. The first
// sign-in of an identity writes its profile document from the provider's
// account fields; later ones read the stored profile.
func (c *Core) SignInWithFederatedIdentity(ctx context.Context) (User, error) {
	done := c.begin(ctx)
	defer done()

	pu, err := c.provider.SignInWithFederated(ctx)
	if err != nil {
		return User{}, c.fail(ctx, opFederated, err)
	}
	if pu == nil || pu.UID == "" {
		return User{}, c.fail(ctx, opFederated, ErrNoUser)
	}

	live := User{
		UID:        pu.UID,
		Email:      pu.Email,
		Name:       pu.DisplayName,
		IsVerified: pu.EmailVerified,
	}

	stored, err := c.store.Get(ctx, pu.UID)
	switch {
	case errors.Is(err, profilestore.ErrNotFound):
		if _, err := c.createProfile(ctx, opFederated, live); err != nil {
			return User{}, err
		}
		c.log.InfoContext(ctx, "profile created on first federated sign-in",
			logger.UID(pu.UID), logger.Provider(pu.ProviderID))
	case err != nil:
		return User{}, c.storeError(ctx, opFederated, err)
	default:
		live = mergeProfile(live, stored)
	}

	c.replace(live)
	c.log.InfoContext(ctx, "signed in", logger.Op(opFederated), logger.UID(pu.UID), logger.Provider(pu.ProviderID))
	return live, nil
}

// SignOut ends the provider session. The current user is reset to empty
// even when the provider reports a failure, which is then returned.
func (c *Core) SignOut(ctx context.Context) error {
	err := c.provider.SignOut(ctx)

	c.mu.Lock()
	c.replaceLocked(User{})
	c.fire(ctx, eventSignOut)
	c.publishLocked()
	c.mu.Unlock()

	if err != nil {
		return c.fail(ctx, opSignOut, err)
	}
	c.log.InfoContext(ctx, "signed out", logger.Op(opSignOut))
	return nil
}

// Reload asks the provider to re-read the session, e.g. after the user
// confirmed their email. The refreshed user arrives through the observer.
func (c *Core) Reload(ctx context.Context) error {
	if err := c.provider.Reload(ctx); err != nil {
		return c.fail(ctx, opReload, err)
	}
	return nil
}

// fail wraps err as an *Error with its classified kind.
func (c *Core) fail(ctx context.Context, op string, err error) error {
	e := &Error{Op: op, Kind: classify(err), Err: err}
	c.logFailure(ctx, e)
	return e
}

func (c *Core) storeError(ctx context.Context, op string, err error) error {
	e := &Error{Op: op, Kind: KindStore, Err: err}
	c.logFailure(ctx, e)
	return e
}

func (c *Core) logFailure(ctx context.Context, e *Error) {
	level := slog.LevelInfo
	switch e.Kind {
	case KindStore, KindUnknown, KindProvider, KindNetwork:
		level = slog.LevelError
	case KindValidation:
		level = slog.LevelDebug
	}
	c.log.Log(ctx, level, "auth action failed",
		logger.Op(e.Op), logger.Kind(e.Kind.String()), logger.Error(e.Err))
}
