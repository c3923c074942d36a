package identity

import "context"

// Provider IDs reported in User.ProviderID and IdPCredential.ProviderID.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// User is the provider's view of the signed-in account.
type User struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	ProviderID    string
}

// Clone returns a copy of u, or nil for a nil receiver.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// IdPCredential is a third-party identity assertion exchanged for a
// provider session by federated sign-in.
type IdPCredential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
}

// FederatedFlow obtains an IdPCredential interactively (browser popup,
// loopback redirect, device code, ...).
type FederatedFlow interface {
	Credential(ctx context.Context) (IdPCredential, error)
}

// Provider is the hosted auth client consumed by the auth core.
//
// OnAuthStateChanged registers fn to be called after every session
// transition: sign-in, sign-out, session restoration at startup and reloads.
// fn receives nil when no session exists. The first call happens once the
// provider has finished restoring any persisted session. Calls for a single
// observer are delivered in order and never concurrently.
type Provider interface {
	OnAuthStateChanged(fn func(*User)) (unsubscribe func())
	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*User, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (*User, error)
	SignInWithFederated(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
	SendEmailVerification(ctx context.Context) error
	Reload(ctx context.Context) error
	CurrentUser() *User
}
