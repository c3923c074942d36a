package authstate

import (
	"errors"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/validator"
)

// ErrNoUser is returned when the provider reports success without a user.
var ErrNoUser = errors.New("authstate: provider returned no user")

// ErrorKind classifies action failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindEmailInUse
	KindInvalidEmail
	KindWeakPassword
	KindWrongPassword
	KindUserNotFound
	KindUserDisabled
	KindTooManyAttempts
	KindNetwork
	KindFederatedCancelled
	KindFederatedFailed
	KindNoUser
	KindSessionExpired
	KindStore
	KindProvider
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindValidation:         "validation",
	KindEmailInUse:         "email_in_use",
	KindInvalidEmail:       "invalid_email",
	KindWeakPassword:       "weak_password",
	KindWrongPassword:      "wrong_password",
	KindUserNotFound:       "user_not_found",
	KindUserDisabled:       "user_disabled",
	KindTooManyAttempts:    "too_many_attempts",
	KindNetwork:            "network",
	KindFederatedCancelled: "federated_cancelled",
	KindFederatedFailed:    "federated_failed",
	KindNoUser:             "no_user",
	KindSessionExpired:     "session_expired",
	KindStore:              "store",
	KindProvider:           "provider",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// GenericMessage is shown for failures without a dedicated message.
const GenericMessage = "Something went wrong. Please try again."

type kindInfo struct {
	field   string
	message string
}

var kindMessages = map[ErrorKind]kindInfo{
	KindEmailInUse:         {"email", "Account with this email already exists"},
	KindInvalidEmail:       {"email", "Invalid email"},
	KindWeakPassword:       {"password", "Password should be at least 6 characters"},
	KindWrongPassword:      {"password", "Wrong email or password"},
	KindUserNotFound:       {"email", "No account found with this email"},
	KindUserDisabled:       {"email", "This account has been disabled"},
	KindTooManyAttempts:    {"", "Too many attempts. Try again later."},
	KindNetwork:            {"", "Network error. Check your connection and try again."},
	KindFederatedCancelled: {"", "Sign-in was cancelled."},
	KindFederatedFailed:    {"", "Sign-in with the identity provider failed."},
	KindSessionExpired:     {"", "Your session has expired. Please sign in again."},
}

// Error is returned by every Core action.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	msg := "authstate: " + e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Field names the form field the failure belongs to, or "" for form-level
// failures.
func (e *Error) Field() string {
	if e.Kind == KindValidation {
		if ve := validator.ExtractValidationErrors(e.Err); len(ve) > 0 {
			return ve[0].Field
		}
		return ""
	}
	return kindMessages[e.Kind].field
}

// Message is the user-facing text. Kinds without a dedicated message get
// GenericMessage.
func (e *Error) Message() string {
	if e.Kind == KindValidation {
		if ve := validator.ExtractValidationErrors(e.Err); len(ve) > 0 {
			return ve[0].Message
		}
	}
	if info, ok := kindMessages[e.Kind]; ok {
		return info.message
	}
	return GenericMessage
}

// KindOf returns the kind of the first *Error in err's chain, or classifies
// err directly when it has none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

var sentinelKinds = []struct {
	err  error
	kind ErrorKind
}{
	{identity.ErrEmailExists, KindEmailInUse},
	{identity.ErrInvalidEmail, KindInvalidEmail},
	{identity.ErrWeakPassword, KindWeakPassword},
	{identity.ErrInvalidPassword, KindWrongPassword},
	{identity.ErrUserNotFound, KindUserNotFound},
	{identity.ErrUserDisabled, KindUserDisabled},
	{identity.ErrTooManyAttempts, KindTooManyAttempts},
	{identity.ErrSessionExpired, KindSessionExpired},
	{identity.ErrNoCurrentUser, KindSessionExpired},
	{identity.ErrFederatedCancelled, KindFederatedCancelled},
	{identity.ErrFederatedFailed, KindFederatedFailed},
	{identity.ErrFederatedNotConfigured, KindFederatedFailed},
	{identity.ErrNetwork, KindNetwork},
	{identity.ErrProvider, KindProvider},
	{ErrNoUser, KindNoUser},
}

// classify maps provider sentinels and validation errors onto kinds.
// Store failures are tagged by the caller, which knows the origin.
func classify(err error) ErrorKind {
	if validator.IsValidationError(err) {
		return KindValidation
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindUnknown
}
