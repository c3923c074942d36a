package httpserver

import (
	"log/slog"
	"net"
	"time"
)

// Config is loaded from HTTP_* variables.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Option configures a Server.
type Option func(*Server)

// WithConfig applies the non-zero fields of cfg.
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		if cfg.Addr != "" {
			s.cfg.Addr = cfg.Addr
		}
		if cfg.ReadTimeout > 0 {
			s.cfg.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			s.cfg.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			s.cfg.IdleTimeout = cfg.IdleTimeout
		}
		if cfg.ShutdownTimeout > 0 {
			s.cfg.ShutdownTimeout = cfg.ShutdownTimeout
		}
	}
}

// WithAddr sets the listen address. Panics on an empty address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: WithAddr: empty address")
	}
	return func(s *Server) { s.cfg.Addr = addr }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: WithShutdownTimeout: duration must be > 0")
	}
	return func(s *Server) { s.cfg.ShutdownTimeout = d }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithListenHook is called with the bound address once the server accepts
// connections.
func WithListenHook(h func(net.Addr)) Option {
	return func(s *Server) { s.onListen = h }
}
