package toolkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/logger"
)

// Client implements identity.Provider over the REST API.
type Client struct {
	api      *api
	sessions SessionStore
	flow     identity.FederatedFlow
	log      *slog.Logger
	now      func() time.Time
	timeout  time.Duration

	mu         sync.Mutex
	session    *Session
	gen        uint64
	restoreGen uint64
	restoring  bool
	restored  bool
	observers map[uint64]*observer
	nextID    uint64
}

var _ identity.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithSessionStore sets where the session is persisted. Defaults to memory.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) {
		if s != nil {
			c.sessions = s
		}
	}
}

// WithFederatedFlow enables SignInWithFederated.
func WithFederatedFlow(f identity.FederatedFlow) Option {
	return func(c *Client) {
		c.flow = f
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.api.http = h
		}
	}
}

// WithLogger sets the client logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client. When cfg.SessionFile is set and no store option is
// given, the session is persisted to that file, sealed with
// cfg.SessionSecret when one is configured.
func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	c := &Client{
		api: &api{
			http:     &http.Client{Timeout: cfg.Timeout},
			key:      cfg.APIKey,
			baseURL:  cfg.BaseURL,
			tokenURL: cfg.TokenURL,
		},
		sessions:  NewMemorySessionStore(),
		log:       logger.Discard(),
		now:       time.Now,
		timeout:   cfg.Timeout,
		observers: make(map[uint64]*observer),
	}
	if cfg.SessionFile != "" {
		var fileOpts []FileOption
		if cfg.SessionSecret != "" {
			fileOpts = append(fileOpts, WithPassphrase(cfg.SessionSecret))
		}
		c.sessions = NewFileSessionStore(cfg.SessionFile, fileOpts...)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("toolkit"))
	return c
}

// OnAuthStateChanged registers fn. The first registration starts session
// restoration; fn is called once restoration completes and after every later
// session change. Registrations after restoration get the current user
// immediately.
func (c *Client) OnAuthStateChanged(fn func(*identity.User)) func() {
	o := newObserver(fn)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = o

	startRestore := false
	switch {
	case c.restored, c.restoring && c.gen != c.restoreGen:
		// An action already settled the session.
		o.push(c.session.user())
	case !c.restoring:
		c.restoring = true
		c.restoreGen = c.gen
		startRestore = true
	}
	c.mu.Unlock()

	if startRestore {
		go c.restore()
	}

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
		o.stop()
	}
}

// Close stops every observer goroutine.
func (c *Client) Close() {
	c.mu.Lock()
	obs := c.observers
	c.observers = make(map[uint64]*observer)
	c.mu.Unlock()

	for _, o := range obs {
		o.stop()
	}
}

func (c *Client) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	s, invalid, err := c.loadSession(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "session restore failed", logger.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.restoring = false
	c.restored = true

	if c.gen != c.restoreGen {
		// An action replaced and persisted the session meanwhile.
		return
	}

	switch {
	case s != nil:
		if err := c.sessions.Save(ctx, s); err != nil {
			c.log.WarnContext(ctx, "failed to persist session", logger.Error(err))
		}
		c.log.DebugContext(ctx, "session restored", logger.UID(s.UID))
	case invalid:
		if err := c.sessions.Clear(ctx); err != nil {
			c.log.WarnContext(ctx, "failed to clear session", logger.Error(err))
		}
	}

	c.session = s
	c.gen++
	c.notifyLocked()
}

// loadSession reads the persisted session and validates it against the API.
// invalid reports that the API rejected the stored session. The store is not
// written; restore persists the outcome only if no action raced it.
func (c *Client) loadSession(ctx context.Context) (s *Session, invalid bool, err error) {
	s, err = c.sessions.Load(ctx)
	if err != nil || s == nil {
		return nil, false, err
	}

	if s.expired(c.now()) {
		if err := c.refreshSession(ctx, s); err != nil {
			return nil, sessionInvalid(err), err
		}
	}

	acct, err := c.api.lookup(ctx, s.IDToken)
	if err != nil {
		return nil, sessionInvalid(err), err
	}
	s.applyAccount(acct)
	return s, false, nil
}

func (c *Client) refreshSession(ctx context.Context, s *Session) error {
	tok, err := c.api.refresh(ctx, s.RefreshToken)
	if err != nil {
		return err
	}
	s.IDToken = tok.IDToken
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	s.ExpiresAt = tokenExpiry(tok.IDToken, tok.ExpiresIn, c.now())
	return nil
}

// setSession replaces the session, persists it and notifies observers.
func (c *Client) setSession(ctx context.Context, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = s
	c.gen++

	var err error
	if s == nil {
		err = c.sessions.Clear(ctx)
	} else {
		err = c.sessions.Save(ctx, s)
	}
	if err != nil {
		c.log.WarnContext(ctx, "failed to persist session", logger.Error(err))
	}

	if c.restored || c.restoring {
		c.notifyLocked()
	}
}

func (c *Client) notifyLocked() {
	for _, o := range c.observers {
		o.push(c.session.user())
	}
}

func (c *Client) sessionFromAuth(r *authResponse, providerID string) *Session {
	if r.ProviderID != "" {
		providerID = r.ProviderID
	}
	return &Session{
		UID:           r.LocalID,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		EmailVerified: r.EmailVerified,
		ProviderID:    providerID,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
		ExpiresAt:     tokenExpiry(r.IDToken, r.ExpiresIn, c.now()),
	}
}

// CreateUserWithEmailAndPassword creates an account and signs it in.
func (c *Client) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*identity.User, error) {
	resp, err := c.api.signUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s := c.sessionFromAuth(resp, identity.ProviderPassword)
	c.setSession(ctx, s)
	c.log.InfoContext(ctx, "account created", logger.UID(s.UID))
	return s.user(), nil
}

// SignInWithEmailAndPassword signs in with a password and reads the
// account's verification flag.
func (c *Client) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*identity.User, error) {
	resp, err := c.api.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s := c.sessionFromAuth(resp, identity.ProviderPassword)

	// The password endpoint does not report the verification flag.
	acct, err := c.api.lookup(ctx, s.IDToken)
	if err != nil {
		return nil, err
	}
	s.applyAccount(acct)

	c.setSession(ctx, s)
	return s.user(), nil
}

// SignInWithFederated obtains an IdP credential from the configured flow
// and exchanges it for a session.
func (c *Client) SignInWithFederated(ctx context.Context) (*identity.User, error) {
	if c.flow == nil {
		return nil, identity.ErrFederatedNotConfigured
	}

	cred, err := c.flow.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if cred.ProviderID == "" {
		cred.ProviderID = identity.ProviderGoogle
	}

	resp, err := c.api.signInWithIdp(ctx, cred)
	if err != nil {
		return nil, err
	}

	s := c.sessionFromAuth(resp, cred.ProviderID)
	c.setSession(ctx, s)
	c.log.InfoContext(ctx, "federated sign-in",
		logger.UID(s.UID), logger.Provider(s.ProviderID), slog.Bool("new_user", resp.IsNewUser))
	return s.user(), nil
}

// SignOut clears the local session and notifies observers.
func (c *Client) SignOut(ctx context.Context) error {
	c.setSession(ctx, nil)
	return nil
}

// SendEmailVerification asks the API to mail a verification code to the
// signed-in account.
func (c *Client) SendEmailVerification(ctx context.Context) error {
	tok, err := c.idToken(ctx)
	if err != nil {
		return err
	}
	return c.api.sendVerifyEmail(ctx, tok)
}

// Reload re-reads the account and notifies observers with the result. A
// session the API no longer accepts is signed out.
func (c *Client) Reload(ctx context.Context) error {
	tok, err := c.idToken(ctx)
	if err != nil {
		return err
	}

	acct, err := c.api.lookup(ctx, tok)
	if err != nil {
		if sessionInvalid(err) {
			c.setSession(ctx, nil)
		}
		return err
	}

	c.mu.Lock()
	cur := c.session
	c.mu.Unlock()
	if cur == nil {
		return identity.ErrNoCurrentUser
	}

	next := *cur
	next.applyAccount(acct)
	c.setSession(ctx, &next)
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *identity.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.user()
}

// idToken returns a valid ID token for the current session, refreshing it
// when expired.
func (c *Client) idToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	cur := c.session
	c.mu.Unlock()

	if cur == nil {
		return "", identity.ErrNoCurrentUser
	}
	if !cur.expired(c.now()) {
		return cur.IDToken, nil
	}

	next := *cur
	if err := c.refreshSession(ctx, &next); err != nil {
		if sessionInvalid(err) {
			c.setSession(ctx, nil)
			return "", errors.Join(identity.ErrSessionExpired, err)
		}
		return "", fmt.Errorf("toolkit: refresh id token: %w", err)
	}

	c.mu.Lock()
	if c.session == cur {
		c.session = &next
		if err := c.sessions.Save(ctx, &next); err != nil {
			c.log.WarnContext(ctx, "failed to persist session", logger.Error(err))
		}
	}
	c.mu.Unlock()

	return next.IDToken, nil
}
