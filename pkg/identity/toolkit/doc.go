// Package toolkit is an identity.Provider that talks to a hosted identity
// service over the Identity Toolkit v1 and Secure Token v1 REST protocol.
//
// The client keeps the signed-in session (ID token, refresh token and the
// account fields) in a SessionStore so a restarted process resumes where the
// previous one stopped. Registering the first observer triggers session
// restoration: the stored session is loaded, its ID token refreshed when
// expired, the account looked up again, and every observer is then told the
// result. Observers receive notifications in order on a dedicated goroutine
// each.
//
// Wire errors are mapped onto the identity sentinels:
//
//	client := toolkit.New(cfg, toolkit.WithSessionStore(toolkit.NewFileSessionStore(path)))
//	_, err := client.SignInWithEmailAndPassword(ctx, email, password)
//	if errors.Is(err, identity.ErrInvalidPassword) {
//		// ...
//	}
package toolkit
