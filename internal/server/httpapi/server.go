// Package httpapi exposes the web/session layer: the login form endpoints
// driving the authentication backend, session cookie handling, and the
// middleware around them (security headers, request logging, session guard).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/auth"
)

const sessionCookieName = "chestkeeper_session"

type Server struct {
	address         string
	backend         auth.Backend
	logger          logging.Logger
	jwtSecret       []byte
	sessionValidity time.Duration
}

func NewServer(address string, l logging.Logger, backend auth.Backend, secretKey string, sessionValidity time.Duration) (*Server, error) {
	return &Server{
		address:         address,
		backend:         backend,
		logger:          l.With("module", "http_server"),
		jwtSecret:       []byte(secretKey),
		sessionValidity: sessionValidity,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLoginSubmit)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /{$}", s.requireSession(http.HandlerFunc(s.handleHome)))

	return s.requestLogger(securityHeaders(mux))
}
