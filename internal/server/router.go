// Package server hosts service routers behind a host-based router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/hostrouter"
)

// Config holds the listener settings
type Config struct {
	Addr        string
	ReadTimeout time.Duration
}

// DefaultConfig listens on :8080
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		ReadTimeout: 30 * time.Second,
	}
}

// Server is an HTTP server routing requests by Host header
type Server struct {
	*http.Server

	hostRouter hostrouter.Routes
}

// New creates a server with the default configuration
func New() *Server {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a server with a custom configuration
func NewWithConfig(cfg *Config) *Server {
	hr := hostrouter.New()

	s := &Server{
		Server: &http.Server{
			Addr:        cfg.Addr,
			ReadTimeout: cfg.ReadTimeout,
		},
		hostRouter: hr,
	}

	r := chi.NewRouter()
	r.Mount("/", hr)
	s.Server.Handler = r

	return s
}

// RegisterDomain serves router for requests to domain. "*" matches any
// host not registered explicitly.
func (s *Server) RegisterDomain(domain string, router chi.Router) {
	s.hostRouter.Map(domain, router)
}
