package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/requestid"
)

// Wire types of the REST protocol. Field names follow the JSON bodies.

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInRequest = signUpRequest

type authResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	ProviderID    string `json:"providerId"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
	IsNewUser     bool   `json:"isNewUser"`
}

type signInWithIdpRequest struct {
	RequestURI          string `json:"requestUri"`
	PostBody            string `json:"postBody"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

type sendOobCodeRequest struct {
	RequestType string `json:"requestType"`
	IDToken     string `json:"idToken"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []accountInfo `json:"users"`
}

type accountInfo struct {
	LocalID          string         `json:"localId"`
	Email            string         `json:"email"`
	DisplayName      string         `json:"displayName"`
	EmailVerified    bool           `json:"emailVerified"`
	Disabled         bool           `json:"disabled"`
	ProviderUserInfo []providerInfo `json:"providerUserInfo"`
}

type providerInfo struct {
	ProviderID string `json:"providerId"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type api struct {
	http     *http.Client
	key      string
	baseURL  string
	tokenURL string
}

func (a *api) endpoint(method string) string {
	return a.baseURL + "/accounts:" + method + "?key=" + url.QueryEscape(a.key)
}

func (a *api) signUp(ctx context.Context, email, password string) (*authResponse, error) {
	var resp authResponse
	err := a.postJSON(ctx, a.endpoint("signUp"), signUpRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	return &resp, err
}

func (a *api) signInWithPassword(ctx context.Context, email, password string) (*authResponse, error) {
	var resp authResponse
	err := a.postJSON(ctx, a.endpoint("signInWithPassword"), signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	return &resp, err
}

func (a *api) signInWithIdp(ctx context.Context, cred identity.IdPCredential) (*authResponse, error) {
	body := url.Values{}
	body.Set("providerId", cred.ProviderID)
	if cred.IDToken != "" {
		body.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		body.Set("access_token", cred.AccessToken)
	}

	var resp authResponse
	err := a.postJSON(ctx, a.endpoint("signInWithIdp"), signInWithIdpRequest{
		RequestURI:          "http://localhost",
		PostBody:            body.Encode(),
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}, &resp)
	return &resp, err
}

func (a *api) sendVerifyEmail(ctx context.Context, idToken string) error {
	return a.postJSON(ctx, a.endpoint("sendOobCode"), sendOobCodeRequest{
		RequestType: "VERIFY_EMAIL",
		IDToken:     idToken,
	}, nil)
}

func (a *api) lookup(ctx context.Context, idToken string) (*accountInfo, error) {
	var resp lookupResponse
	if err := a.postJSON(ctx, a.endpoint("lookup"), lookupRequest{IDToken: idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, identity.ErrUserNotFound
	}
	return &resp.Users[0], nil
}

func (a *api) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.tokenURL+"?key="+url.QueryEscape(a.key), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("toolkit: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp tokenResponse
	if err := a.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *api) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("toolkit: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("toolkit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return a.do(req, out)
}

func (a *api) do(req *http.Request, out any) error {
	id := requestid.FromContext(req.Context())
	if !requestid.IsValid(id) {
		id = requestid.New()
	}
	req.Header.Set(requestid.Header, id)

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Join(identity.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Join(identity.ErrNetwork, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
			env.Error = &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		if env.Error.Code == 0 {
			env.Error.Code = resp.StatusCode
		}
		env.Error.RequestID = id
		return mapAPIError(env.Error)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(identity.ErrProvider, fmt.Errorf("toolkit: decode response: %w", err))
	}
	return nil
}
