// Package federated obtains identity-provider credentials for federated
// sign-in from a terminal process.
//
// GoogleLoopback runs the OAuth 2.0 authorization code flow with PKCE
// against Google and receives the redirect on a loopback listener, which is
// the installed-application counterpart of a browser sign-in popup.
package federated

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dmitrymomot/ency/pkg/httpserver"
	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/requestid"
)

const callbackPath = "/callback"

// GoogleConfig is loaded from GOOGLE_OAUTH_* variables. The client must be
// registered as a desktop application so any loopback port is accepted.
type GoogleConfig struct {
	ClientID     string        `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string        `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	Scopes       []string      `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	ListenAddr   string        `env:"GOOGLE_OAUTH_LISTEN_ADDR" envDefault:"127.0.0.1:0"`
	Timeout      time.Duration `env:"GOOGLE_OAUTH_TIMEOUT" envDefault:"5m"`
}

// GoogleLoopback implements identity.FederatedFlow.
type GoogleLoopback struct {
	cfg        GoogleConfig
	endpoint   oauth2.Endpoint
	open       Opener
	httpClient *http.Client
	log        *slog.Logger
}

var _ identity.FederatedFlow = (*GoogleLoopback)(nil)

// Option configures a GoogleLoopback.
type Option func(*GoogleLoopback)

// WithOpener sets how the authorization URL is shown to the user.
func WithOpener(o Opener) Option {
	return func(g *GoogleLoopback) {
		if o != nil {
			g.open = o
		}
	}
}

// WithEndpoint replaces the Google endpoint.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(g *GoogleLoopback) { g.endpoint = e }
}

// WithHTTPClient sets the client used for the code exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleLoopback) { g.httpClient = c }
}

// WithLogger sets the flow logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *GoogleLoopback) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGoogleLoopback creates the flow. The URL is opened with
// BrowserOpener(nil) unless an option replaces it.
func NewGoogleLoopback(cfg GoogleConfig, opts ...Option) *GoogleLoopback {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	g := &GoogleLoopback{
		cfg:        cfg,
		endpoint:   google.Endpoint,
		open:       BrowserOpener(nil),
		httpClient: &http.Client{Timeout: 10 * time.Second, Transport: &requestid.Transport{}},
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("federated"), logger.Provider(identity.ProviderGoogle))
	return g
}

type callbackResult struct {
	code string
	err  error
}

// Credential shows the consent page and waits for the redirect. Declining
// consent, a cancelled ctx and the flow timeout all yield
// identity.ErrFederatedCancelled.
func (g *GoogleLoopback) Credential(ctx context.Context) (identity.IdPCredential, error) {
	if g.cfg.ClientID == "" {
		return identity.IdPCredential{}, identity.ErrFederatedNotConfigured
	}

	ln, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedFailed, err)
	}

	conf := &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		Endpoint:     g.endpoint,
		RedirectURL:  "http://" + ln.Addr().String() + callbackPath,
		Scopes:       g.cfg.Scopes,
	}
	state := rand.Text()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(r callbackResult) {
		once.Do(func() { results <- r })
	}

	srvCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	go func() {
		srv := httpserver.New(httpserver.WithLogger(g.log), httpserver.WithShutdownTimeout(time.Second))
		if err := srv.Serve(srvCtx, ln, g.callbackRouter(state, deliver)); err != nil {
			g.log.Warn("loopback server stopped", logger.Error(err))
		}
	}()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oauth2.SetAuthURLParam("prompt", "select_account"))
	if err := g.open(authURL); err != nil {
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedFailed, fmt.Errorf("open consent page: %w", err))
	}

	timer := time.NewTimer(g.cfg.Timeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case <-ctx.Done():
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedCancelled, ctx.Err())
	case <-timer.C:
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedCancelled, errors.New("timed out waiting for consent"))
	case res = <-results:
	}
	if res.err != nil {
		return identity.IdPCredential{}, res.err
	}

	tok, err := conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.httpClient), res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedFailed, fmt.Errorf("exchange code: %w", err))
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return identity.IdPCredential{}, errors.Join(identity.ErrFederatedFailed, errors.New("token response has no id_token"))
	}

	g.log.DebugContext(ctx, "google credential obtained")
	return identity.IdPCredential{
		ProviderID:  identity.ProviderGoogle,
		IDToken:     idToken,
		AccessToken: tok.AccessToken,
	}, nil
}

func (g *GoogleLoopback) callbackRouter(state string, deliver func(callbackResult)) http.Handler {
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		switch {
		case q.Get("state") != state:
			http.Error(w, "Sign-in failed: state mismatch.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.Join(identity.ErrFederatedFailed, errors.New("state mismatch"))})
		case q.Get("error") == "access_denied":
			_, _ = w.Write([]byte("Sign-in cancelled. You can close this window."))
			deliver(callbackResult{err: identity.ErrFederatedCancelled})
		case q.Get("error") != "":
			http.Error(w, "Sign-in failed.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.Join(identity.ErrFederatedFailed, fmt.Errorf("authorization error: %s", q.Get("error")))})
		case q.Get("code") == "":
			http.Error(w, "Sign-in failed: missing code.", http.StatusBadRequest)
			deliver(callbackResult{err: errors.Join(identity.ErrFederatedFailed, errors.New("missing authorization code"))})
		default:
			_, _ = w.Write([]byte("Signed in. You can close this window."))
			deliver(callbackResult{code: q.Get("code")})
		}
	})
	return r
}
