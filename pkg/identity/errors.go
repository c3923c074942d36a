package identity

import "errors"

// Credential errors.
var (
	ErrEmailExists     = errors.New("identity: email already in use")
	ErrInvalidEmail    = errors.New("identity: invalid email")
	ErrWeakPassword    = errors.New("identity: password too weak")
	ErrInvalidPassword = errors.New("identity: invalid password")
	ErrUserNotFound    = errors.New("identity: user not found")
	ErrUserDisabled    = errors.New("identity: user disabled")
	ErrTooManyAttempts = errors.New("identity: too many attempts, try later")
)

// Session errors.
var (
	ErrNoCurrentUser  = errors.New("identity: no signed-in user")
	ErrSessionExpired = errors.New("identity: session expired")
)

// Federated sign-in errors.
var (
	ErrFederatedCancelled     = errors.New("identity: federated sign-in cancelled")
	ErrFederatedFailed        = errors.New("identity: federated sign-in failed")
	ErrFederatedNotConfigured = errors.New("identity: federated sign-in not configured")
)

// Transport and catch-all errors.
var (
	ErrNetwork  = errors.New("identity: network error")
	ErrProvider = errors.New("identity: provider error")
)
