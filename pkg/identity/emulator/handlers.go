package emulator

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/logger"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type authResponse struct {
	Kind          string `json:"kind"`
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	ProviderID    string `json:"providerId,omitempty"`
	FederatedID   string `json:"federatedId,omitempty"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
	Registered    bool   `json:"registered,omitempty"`
	IsNewUser     bool   `json:"isNewUser,omitempty"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return badRequest(codeInvalidJSON)
	}
	return nil
}

func (e *Emulator) authResponseLocked(kind string, a *Account) (*authResponse, error) {
	idToken, refreshToken, err := e.sessionLocked(a)
	if err != nil {
		return nil, err
	}
	return &authResponse{
		Kind:          kind,
		LocalID:       a.UID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		EmailVerified: a.EmailVerified,
		IDToken:       idToken,
		RefreshToken:  refreshToken,
		ExpiresIn:     e.expiresIn(),
	}, nil
}

func (e *Emulator) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e.mu.Lock()
	a, err := e.createPasswordAccountLocked(req.Email, req.Password, req.DisplayName)
	var resp *authResponse
	if err == nil {
		resp, err = e.authResponseLocked("identitytoolkit#SignupNewUserResponse", a)
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	e.metrics.accounts.Inc()
	e.log.InfoContext(r.Context(), "account created", logger.UID(a.UID), logger.Provider(identity.ProviderPassword))
	writeJSON(w, http.StatusOK, resp)
}

func (e *Emulator) handleSignInWithPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" {
		writeError(w, badRequest(codeInvalidEmail))
		return
	}
	if req.Password == "" {
		writeError(w, badRequest(codeMissingPassword))
		return
	}

	e.mu.Lock()
	a, err := e.checkPasswordLocked(req.Email, req.Password)
	var resp *authResponse
	if err == nil {
		resp, err = e.authResponseLocked("identitytoolkit#VerifyPasswordResponse", a)
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	resp.Registered = true
	writeJSON(w, http.StatusOK, resp)
}

type idpRequest struct {
	RequestURI        string `json:"requestUri"`
	PostBody          string `json:"postBody"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (e *Emulator) handleSignInWithIdp(w http.ResponseWriter, r *http.Request) {
	var req idpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	body, err := url.ParseQuery(req.PostBody)
	if err != nil {
		writeError(w, badRequest(codeInvalidIdpResponse))
		return
	}
	providerID := body.Get("providerId")
	rawToken := body.Get("id_token")
	if providerID == "" || rawToken == "" {
		writeError(w, badRequest(codeInvalidIdpResponse+" : missing id_token or providerId"))
		return
	}

	var claims idpClaims
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, &claims); err != nil || claims.Subject == "" {
		writeError(w, badRequest(codeInvalidIdpResponse+" : unparseable id_token"))
		return
	}

	e.mu.Lock()
	a, isNew, err := e.federatedAccountLocked(providerID, claims)
	var resp *authResponse
	if err == nil {
		resp, err = e.authResponseLocked("identitytoolkit#VerifyAssertionResponse", a)
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	if isNew {
		e.metrics.accounts.Inc()
		e.log.InfoContext(r.Context(), "account created", logger.UID(a.UID), logger.Provider(providerID))
	}
	resp.ProviderID = providerID
	resp.FederatedID = claims.Subject
	resp.IsNewUser = isNew
	writeJSON(w, http.StatusOK, resp)
}

// federatedAccountLocked finds the account linked to the IdP subject, links
// an existing account with the same email, or creates a new one.
func (e *Emulator) federatedAccountLocked(providerID string, c idpClaims) (*Account, bool, error) {
	if uid, ok := e.byFederated[providerID+"|"+c.Subject]; ok {
		a := e.accounts[uid]
		if a.Disabled {
			return nil, false, badRequest(codeUserDisabled)
		}
		return a, false, nil
	}

	if a := e.accountByEmailLocked(c.Email); a != nil && c.Email != "" {
		if a.Disabled {
			return nil, false, badRequest(codeUserDisabled)
		}
		a.FederatedID = c.Subject
		a.EmailVerified = a.EmailVerified || c.EmailVerified
		if a.DisplayName == "" {
			a.DisplayName = c.Name
		}
		e.byFederated[providerID+"|"+c.Subject] = a.UID
		return a, false, nil
	}

	a := &Account{
		Email:         strings.ToLower(c.Email),
		DisplayName:   c.Name,
		EmailVerified: c.EmailVerified,
		ProviderID:    providerID,
		FederatedID:   c.Subject,
	}
	e.insertLocked(a)
	return a, true, nil
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	IDToken     string `json:"idToken"`
}

func (e *Emulator) handleSendOobCode(w http.ResponseWriter, r *http.Request) {
	var req oobRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RequestType != "VERIFY_EMAIL" {
		writeError(w, badRequest(codeInvalidReqType))
		return
	}

	e.mu.Lock()
	a, err := e.verifyIDTokenLocked(req.IDToken)
	var code OOBCode
	if err == nil {
		code = e.issueOOBLocked(a, req.RequestType)
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	e.log.InfoContext(r.Context(), "verification code issued", logger.UID(a.UID), slog.String("oob_link", code.Link))
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":  "identitytoolkit#GetOobConfirmationCodeResponse",
		"email": a.Email,
	})
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type userInfo struct {
	LocalID          string         `json:"localId"`
	Email            string         `json:"email"`
	DisplayName      string         `json:"displayName,omitempty"`
	EmailVerified    bool           `json:"emailVerified"`
	Disabled         bool           `json:"disabled,omitempty"`
	CreatedAt        string         `json:"createdAt"`
	ProviderUserInfo []providerInfo `json:"providerUserInfo"`
}

type providerInfo struct {
	ProviderID  string `json:"providerId"`
	FederatedID string `json:"federatedId,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (e *Emulator) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e.mu.Lock()
	a, err := e.verifyIDTokenLocked(req.IDToken)
	var info userInfo
	if err == nil {
		info = userInfo{
			LocalID:       a.UID,
			Email:         a.Email,
			DisplayName:   a.DisplayName,
			EmailVerified: a.EmailVerified,
			Disabled:      a.Disabled,
			CreatedAt:     itoa(int(a.CreatedAt.UnixMilli())),
			ProviderUserInfo: []providerInfo{{
				ProviderID:  a.ProviderID,
				FederatedID: a.FederatedID,
				Email:       a.Email,
			}},
		}
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":  "identitytoolkit#GetAccountInfoResponse",
		"users": []userInfo{info},
	})
}

type updateRequest struct {
	OOBCode     string `json:"oobCode"`
	IDToken     string `json:"idToken"`
	DisplayName string `json:"displayName"`
}

// handleUpdate confirms an email verification code, or updates the display
// name of the account behind idToken.
func (e *Emulator) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e.mu.Lock()
	var (
		a   *Account
		err error
	)
	if req.OOBCode != "" {
		code, ok := e.oobCodes[req.OOBCode]
		if ok {
			a, ok = e.accounts[code.uid]
		}
		if !ok {
			err = badRequest(codeInvalidOobCode)
		} else {
			a.EmailVerified = true
			delete(e.oobCodes, req.OOBCode)
		}
	} else {
		a, err = e.verifyIDTokenLocked(req.IDToken)
		if err == nil {
			a.DisplayName = req.DisplayName
		}
	}
	var resp map[string]any
	if err == nil {
		resp = map[string]any{
			"kind":          "identitytoolkit#SetAccountInfoResponse",
			"localId":       a.UID,
			"email":         a.Email,
			"displayName":   a.DisplayName,
			"emailVerified": a.EmailVerified,
		}
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

// handleToken accepts form or JSON bodies.
func (e *Emulator) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, badRequest(codeInvalidJSON))
			return
		}
		req.GrantType = r.PostForm.Get("grant_type")
		req.RefreshToken = r.PostForm.Get("refresh_token")
	}

	if req.GrantType != "refresh_token" {
		writeError(w, badRequest(codeInvalidGrantType))
		return
	}

	e.mu.Lock()
	var (
		a       *Account
		idToken string
		err     error
	)
	uid, ok := e.refreshTokens[req.RefreshToken]
	if ok {
		a, ok = e.accounts[uid]
	}
	switch {
	case !ok:
		err = badRequest(codeInvalidRefresh)
	case a.Disabled:
		err = badRequest(codeUserDisabled)
	default:
		idToken, err = e.signIDToken(a)
	}
	e.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"expires_in":    e.expiresIn(),
		"token_type":    "Bearer",
		"refresh_token": req.RefreshToken,
		"id_token":      idToken,
		"user_id":       a.UID,
		"project_id":    e.cfg.ProjectID,
	})
}

func (e *Emulator) handleListOobCodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"oobCodes": e.OOBCodes()})
}

func (e *Emulator) handleReset(w http.ResponseWriter, _ *http.Request) {
	e.Reset()
	writeJSON(w, http.StatusOK, map[string]any{})
}
