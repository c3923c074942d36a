// Package authstate is the single source of truth for who the current user
// is and the only entry point for changing it.
//
// A Core wraps an identity.Provider and a profile store. On construction it
// registers one observer with the provider; every session change the
// provider reports replaces the current User, after which the stored profile
// is fetched and merged in. The verification flag always comes from the live
// provider observation.
//
// Consumers read the current State snapshot or subscribe to every
// replacement, and call the actions:
//
//	core := authstate.New(provider, store, authstate.WithLogger(log))
//	defer core.Close()
//
//	if err := core.WaitReady(ctx); err != nil {
//		return err
//	}
//
//	user, err := core.SignIn(ctx, authstate.SignInInput{Email: email, Password: password})
//	if err != nil {
//		var aerr *authstate.Error
//		if errors.As(err, &aerr) {
//			showFieldError(aerr.Field(), aerr.Message())
//		}
//	}
//
// Every action returns either its value or an *Error carrying a closed
// ErrorKind. Provider and store failures are classified once, here.
package authstate
