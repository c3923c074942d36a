package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/ency/pkg/logger"
)

// Server serves one handler until its context is cancelled or the process
// receives SIGINT/SIGTERM.
type Server struct {
	cfg      Config
	log      *slog.Logger
	onListen func(net.Addr)

	mu  sync.Mutex
	srv *http.Server
}

// New creates a server with the given options.
func New(opts ...Option) *Server {
	s := &Server{
		cfg: Config{Addr: "127.0.0.1:8080", ShutdownTimeout: 5 * time.Second},
		log: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on the configured address and serves handler.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	return s.Serve(ctx, ln, handler)
}

// Serve serves handler on ln and blocks until shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrAlreadyRunning
	}
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.srv = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.log.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))
	if s.onListen != nil {
		s.onListen(ln.Addr())
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var err error
	select {
	case <-ctx.Done():
		err = s.Shutdown(context.Background())
		<-errCh
	case <-stop:
		err = s.Shutdown(context.Background())
		<-errCh
	case err = <-errCh:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		if errors.Is(err, ErrShutdown) {
			return err
		}
		return errors.Join(ErrStart, err)
	}
	s.log.InfoContext(ctx, "http server stopped")
	return nil
}

// Shutdown drains in-flight requests for at most ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
