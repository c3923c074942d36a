package toolkit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/ency/pkg/identity"
)

// APIError is the error body returned by the REST API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	// RequestID is the X-Request-ID the failed call was sent with.
	RequestID string `json:"-"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("identity api: %d %s (request %s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("identity api: %d %s", e.Code, e.Message)
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// Messages may carry a detail suffix, e.g. "WEAK_PASSWORD : Password should
// be at least 6 characters", so matching is by the leading code.
var messageErrors = map[string]error{
	"EMAIL_EXISTS":                   identity.ErrEmailExists,
	"INVALID_EMAIL":                  identity.ErrInvalidEmail,
	"MISSING_EMAIL":                  identity.ErrInvalidEmail,
	"WEAK_PASSWORD":                  identity.ErrWeakPassword,
	"INVALID_PASSWORD":               identity.ErrInvalidPassword,
	"INVALID_LOGIN_CREDENTIALS":      identity.ErrInvalidPassword,
	"MISSING_PASSWORD":               identity.ErrInvalidPassword,
	"EMAIL_NOT_FOUND":                identity.ErrUserNotFound,
	"USER_NOT_FOUND":                 identity.ErrUserNotFound,
	"USER_DISABLED":                  identity.ErrUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    identity.ErrTooManyAttempts,
	"TOKEN_EXPIRED":                  identity.ErrSessionExpired,
	"INVALID_REFRESH_TOKEN":          identity.ErrSessionExpired,
	"INVALID_ID_TOKEN":               identity.ErrSessionExpired,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": identity.ErrSessionExpired,
	"INVALID_IDP_RESPONSE":           identity.ErrFederatedFailed,
}

func errorCode(message string) string {
	code, _, _ := strings.Cut(message, ":")
	code, _, _ = strings.Cut(strings.TrimSpace(code), " ")
	return code
}

// mapAPIError wraps e with the identity sentinel for its message code.
func mapAPIError(e *APIError) error {
	if sentinel, ok := messageErrors[errorCode(e.Message)]; ok {
		return errors.Join(sentinel, e)
	}
	if e.Code >= 500 {
		return errors.Join(identity.ErrNetwork, e)
	}
	return errors.Join(identity.ErrProvider, e)
}

// sessionInvalid reports errors after which the stored session can never be
// used again.
func sessionInvalid(err error) bool {
	return errors.Is(err, identity.ErrSessionExpired) ||
		errors.Is(err, identity.ErrUserNotFound) ||
		errors.Is(err, identity.ErrUserDisabled)
}
