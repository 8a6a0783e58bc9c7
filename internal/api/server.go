package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openhamclock/rigd/internal/auth"
)

// Version is reported by /health.
const Version = "1.0.0"

// Server is the HTTP front end.
type Server struct {
	addr       string
	mux        *http.ServeMux
	httpServer *http.Server
	started    time.Time

	controller ControllerPort
	stream     StreamPort
	status     StatusPort
	authMW     *auth.Middleware
}

// NewServer creates the HTTP server. authSecret empty disables bearer-token
// protection on the write endpoints.
func NewServer(addr string, controller ControllerPort, stream StreamPort, status StatusPort, authSecret string) *Server {
	s := &Server{
		addr:       addr,
		mux:        http.NewServeMux(),
		started:    time.Now(),
		controller: controller,
		stream:     stream,
		status:     status,
	}
	if authSecret != "" {
		s.authMW = auth.NewMiddleware(authSecret)
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout stays zero: /stream connections are long-lived.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Handler exposes the routed mux. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until the listener fails or Shutdown runs. It blocks.
func (s *Server) Start() error {
	log.Printf("[INFO] api: listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains connections until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
