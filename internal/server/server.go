// Package server exposes the chat agent over the widget's HTTP contract.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chat-widget/internal/agent"
	"chat-widget/internal/chatapi"
)

// Options configures a Server
type Options struct {
	Addr          string
	AllowedOrigin string
	RatePerMinute int
	RateBurst     int
	Logger        zerolog.Logger
}

// Server serves POST /chat and GET /health
type Server struct {
	router  *chi.Mux
	addr    string
	agent   agent.Agent
	limiter *sessionLimiter
	logger  zerolog.Logger
}

// NewServer builds the router
func NewServer(a agent.Agent, opts Options) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		addr:    opts.Addr,
		agent:   a,
		limiter: newSessionLimiter(opts.RatePerMinute, opts.RateBurst, 10*time.Minute),
		logger:  opts.Logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors(opts.AllowedOrigin))

	s.router.Post("/chat", s.chat)
	s.router.Get("/health", s.health)

	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("API server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("API server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, chatapi.ErrorBody{Detail: detail})
}
