package emulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/ency/pkg/clientip"
	"github.com/dmitrymomot/ency/pkg/httpserver"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/ratelimiter"
	"github.com/dmitrymomot/ency/pkg/requestid"
)

// Emulator holds the in-memory account database and its HTTP routes.
type Emulator struct {
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
	registry *prometheus.Registry
	metrics  *metrics
	router   chi.Router

	limits  *ratelimiter.MemoryStore
	limiter *ratelimiter.Bucket

	mu            sync.Mutex
	accounts      map[string]*Account
	byEmail       map[string]string
	byFederated   map[string]string
	refreshTokens map[string]string
	oobCodes      map[string]OOBCode
	failures      map[string]loginFailures
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the emulator logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emulator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now for token issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(e *Emulator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRegistry registers the emulator metrics on r instead of a private
// registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(e *Emulator) {
		if r != nil {
			e.registry = r
		}
	}
}

// New builds an emulator and applies cfg.SeedFile when set.
func New(cfg Config, opts ...Option) (*Emulator, error) {
	e := &Emulator{
		cfg:           cfg.withDefaults(),
		log:           logger.Discard(),
		now:           time.Now,
		accounts:      make(map[string]*Account),
		byEmail:       make(map[string]string),
		byFederated:   make(map[string]string),
		refreshTokens: make(map[string]string),
		oobCodes:      make(map[string]OOBCode),
		failures:      make(map[string]loginFailures),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	e.log = e.log.With(logger.Component("emulator"))

	m, err := newMetrics(e.registry)
	if err != nil {
		return nil, fmt.Errorf("emulator: register metrics: %w", err)
	}
	e.metrics = m

	if e.cfg.RateLimit > 0 {
		e.limits = ratelimiter.NewMemoryStore(ratelimiter.WithClock(e.now), ratelimiter.WithSweepInterval(0))
		e.limiter, err = ratelimiter.NewBucket(e.limits, ratelimiter.Config{
			Capacity:       e.cfg.RateLimit,
			RefillRate:     e.cfg.RateLimit,
			RefillInterval: e.cfg.RateLimitInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("emulator: rate limiter: %w", err)
		}
	}

	if e.cfg.SeedFile != "" {
		if err := e.SeedFile(e.cfg.SeedFile); err != nil {
			return nil, err
		}
	}

	e.router = e.routes()
	return e, nil
}

// Handler returns the emulator's HTTP routes.
func (e *Emulator) Handler() http.Handler {
	return e.router
}

func (e *Emulator) routes() chi.Router {
	resolveIP := clientip.PeerIP
	if e.cfg.TrustProxyHeaders {
		resolveIP = clientip.FromRequest
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware(resolveIP))
	r.Use(e.metrics.middleware)
	r.Use(e.accessLog)

	r.Route("/identitytoolkit.googleapis.com/v1", func(r chi.Router) {
		r.Use(e.throttle)
		r.Post("/accounts:signUp", e.handleSignUp)
		r.Post("/accounts:signInWithPassword", e.handleSignInWithPassword)
		r.Post("/accounts:signInWithIdp", e.handleSignInWithIdp)
		r.Post("/accounts:sendOobCode", e.handleSendOobCode)
		r.Post("/accounts:lookup", e.handleLookup)
		r.Post("/accounts:update", e.handleUpdate)
	})
	r.With(e.throttle).Post("/securetoken.googleapis.com/v1/token", e.handleToken)

	r.Route("/emulator/v1", func(r chi.Router) {
		r.Get("/oobCodes", e.handleListOobCodes)
		r.Delete("/accounts", e.handleReset)
	})

	r.Get("/healthz", httpserver.HealthCheckHandler(e.log))
	r.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	return r
}

// Run serves the emulator on cfg.Addr until ctx is cancelled.
func (e *Emulator) Run(ctx context.Context, opts ...httpserver.Option) error {
	ln, err := net.Listen("tcp", e.cfg.Addr)
	if err != nil {
		return errors.Join(httpserver.ErrStart, err)
	}
	return e.Serve(ctx, ln, opts...)
}

// Serve serves the emulator on ln until ctx is cancelled.
func (e *Emulator) Serve(ctx context.Context, ln net.Listener, opts ...httpserver.Option) error {
	e.mu.Lock()
	e.cfg.Addr = ln.Addr().String()
	e.mu.Unlock()

	srv := httpserver.New(append([]httpserver.Option{httpserver.WithLogger(e.log)}, opts...)...)
	return srv.Serve(ctx, ln, e.router)
}

// OOBCodes returns the issued verification codes, oldest first.
func (e *Emulator) OOBCodes() []OOBCode {
	e.mu.Lock()
	defer e.mu.Unlock()

	codes := make([]OOBCode, 0, len(e.oobCodes))
	for _, c := range e.oobCodes {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].CreatedAt.Before(codes[j].CreatedAt) })
	return codes
}

// Account returns a copy of the account registered under email.
func (e *Emulator) Account(email string) (Account, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.accountByEmailLocked(email)
	if a == nil {
		return Account{}, false
	}
	return *a, true
}

// SetDisabled enables or disables an account. Disabled accounts can neither
// sign in nor refresh their tokens.
func (e *Emulator) SetDisabled(uid string, disabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.accounts[uid]
	if ok {
		a.Disabled = disabled
	}
	return ok
}

// Reset drops every account, token and code.
func (e *Emulator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	clear(e.accounts)
	clear(e.byEmail)
	clear(e.byFederated)
	clear(e.refreshTokens)
	clear(e.oobCodes)
	clear(e.failures)
	if e.limits != nil {
		e.limits.Clear()
	}
}

// throttle applies the per-client rate limit to provider API calls.
func (e *Emulator) throttle(next http.Handler) http.Handler {
	if e.limiter == nil {
		return next
	}
	key := func(r *http.Request) string { return clientip.FromContext(r.Context()) }
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		e.log.WarnContext(r.Context(), "client throttled")
		writeError(w, &apiError{status: http.StatusTooManyRequests, message: codeTooManyAttempts})
	}
	return ratelimiter.Middleware(e.limiter, key, onLimit)(next)
}

func (e *Emulator) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		e.log.DebugContext(r.Context(), "request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", max(ww.Status(), http.StatusOK)),
			logger.Duration(time.Since(start)))
	})
}
