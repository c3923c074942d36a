package emulator

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Wire error codes.
const (
	codeEmailExists        = "EMAIL_EXISTS"
	codeEmailNotFound      = "EMAIL_NOT_FOUND"
	codeInvalidEmail       = "INVALID_EMAIL"
	codeMissingEmail       = "MISSING_EMAIL"
	codeMissingPassword    = "MISSING_PASSWORD"
	codeInvalidPassword    = "INVALID_PASSWORD"
	codeWeakPassword       = "WEAK_PASSWORD"
	codeUserDisabled       = "USER_DISABLED"
	codeUserNotFound       = "USER_NOT_FOUND"
	codeTooManyAttempts    = "TOO_MANY_ATTEMPTS_TRY_LATER"
	codeInvalidIDToken     = "INVALID_ID_TOKEN"
	codeTokenExpired       = "TOKEN_EXPIRED"
	codeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	codeInvalidGrantType   = "INVALID_GRANT_TYPE"
	codeInvalidIdpResponse = "INVALID_IDP_RESPONSE"
	codeInvalidOobCode     = "INVALID_OOB_CODE"
	codeInvalidReqType     = "INVALID_REQ_TYPE"
	codeInvalidJSON        = "INVALID_JSON_PAYLOAD"
)

var ErrSeedFile = errors.New("emulator: invalid seed file")

// apiError is returned by account operations and rendered as the error
// envelope of the protocol.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Errors  []errorReason `json:"errors"`
}

type errorReason struct {
	Message string `json:"message"`
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
}

func writeError(w http.ResponseWriter, err error) {
	var ae *apiError
	if !errors.As(err, &ae) {
		ae = &apiError{status: http.StatusInternalServerError, message: "INTERNAL_ERROR"}
	}
	writeJSON(w, ae.status, errorBody{Error: errorDetail{
		Code:    ae.status,
		Message: ae.message,
		Errors:  []errorReason{{Message: ae.message, Domain: "global", Reason: "invalid"}},
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
