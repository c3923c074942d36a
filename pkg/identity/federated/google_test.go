package federated_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/identity/federated"
)

// fakeGoogle is a token endpoint that checks the PKCE verifier.
func fakeGoogle(t *testing.T, idToken string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("code_verifier") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}

		resp := map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if idToken != "" {
			resp["id_token"] = idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// browser plays the user: it inspects the consent URL and follows the
// redirect with the given query.
func browser(t *testing.T, query func(state string) url.Values) federated.Opener {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Contains(t, q.Get("scope"), "openid")

		go func() {
			resp, err := http.Get(q.Get("redirect_uri") + "?" + query(q.Get("state")).Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func newFlow(srv *httptest.Server, opener federated.Opener) *federated.GoogleLoopback {
	return federated.NewGoogleLoopback(
		federated.GoogleConfig{ClientID: "client", ClientSecret: "secret", Timeout: 3 * time.Second},
		federated.WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		federated.WithHTTPClient(srv.Client()),
		federated.WithOpener(opener),
	)
}

func TestGoogleLoopback_Credential(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		flow := newFlow(srv, browser(t, func(state string) url.Values {
			return url.Values{"state": {state}, "code": {"good-code"}}
		}))

		cred, err := flow.Credential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, identity.IdPCredential{
			ProviderID:  identity.ProviderGoogle,
			IDToken:     "google-id-token",
			AccessToken: "access-1",
		}, cred)
	})

	t.Run("consent declined", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		flow := newFlow(srv, browser(t, func(state string) url.Values {
			return url.Values{"state": {state}, "error": {"access_denied"}}
		}))

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedCancelled)
	})

	t.Run("state mismatch", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		flow := newFlow(srv, browser(t, func(string) url.Values {
			return url.Values{"state": {"forged"}, "code": {"good-code"}}
		}))

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedFailed)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		flow := newFlow(srv, browser(t, func(state string) url.Values {
			return url.Values{"state": {state}, "code": {"bad-code"}}
		}))

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedFailed)
	})

	t.Run("no id token", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "")
		flow := newFlow(srv, browser(t, func(state string) url.Values {
			return url.Values{"state": {state}, "code": {"good-code"}}
		}))

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedFailed)
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		ctx, cancel := context.WithCancel(context.Background())
		flow := newFlow(srv, func(string) error {
			cancel()
			return nil
		})

		_, err := flow.Credential(ctx)
		assert.ErrorIs(t, err, identity.ErrFederatedCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("opener failure", func(t *testing.T) {
		t.Parallel()
		srv := fakeGoogle(t, "google-id-token")
		flow := newFlow(srv, func(string) error { return errors.New("no display") })

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedFailed)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		flow := federated.NewGoogleLoopback(federated.GoogleConfig{})

		_, err := flow.Credential(context.Background())
		assert.ErrorIs(t, err, identity.ErrFederatedNotConfigured)
	})
}
