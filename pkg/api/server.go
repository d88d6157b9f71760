// Package api exposes the pot service over a JSON HTTP API
//
// @title       moneypot API
// @version     1.0
// @description Shared money pots with capped proportional allocation.
// @BasePath    /
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	pcontext "github.com/moneypot/moneypot/pkg/context"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/types"
)

const (
	// UserHeader carries the acting user's id
	UserHeader = "X-User-ID"
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"
)

// PotService is the subset of the ledger the API needs
type PotService interface {
	CreatePot(ctx context.Context, creator string, data types.CreatePotData) (*types.MoneyPot, error)
	GetPotByShareCode(ctx context.Context, code string) (*types.PotSummary, error)
	GetUserPots(ctx context.Context, creator string) ([]types.MoneyPot, error)
	JoinPot(ctx context.Context, potID string, data types.JoinPotData) (*types.Participant, error)
	DeleteParticipant(ctx context.Context, participantID string) (string, error)
	Distribution(ctx context.Context, potID string) (*types.Distribution, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		RequestTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}

// Server is the HTTP front of the pot service
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	config   Config
	logger   logger.Logger
}

// NewServer creates a server and registers its routes
func NewServer(config Config, service PotService, log logger.Logger) *Server {
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(service, log),
		config:   config,
		logger:   log,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.config.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logger.WithField("addr", s.config.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.jsonContentTypeMiddleware)

	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/allocate", s.handlers.Allocate).Methods(http.MethodPost)

	s.router.HandleFunc("/pots", s.handlers.CreatePot).Methods(http.MethodPost)
	s.router.HandleFunc("/pots", s.handlers.ListPots).Methods(http.MethodGet)
	s.router.HandleFunc("/pots/{shareCode}", s.handlers.GetPot).Methods(http.MethodGet)
	s.router.HandleFunc("/pots/{potID}/participants", s.handlers.JoinPot).Methods(http.MethodPost)
	s.router.HandleFunc("/pots/{potID}/distribution", s.handlers.Distribution).Methods(http.MethodGet)
	s.router.HandleFunc("/participants/{participantID}", s.handlers.DeleteParticipant).Methods(http.MethodDelete)

	s.router.NotFoundHandler = s.jsonContentTypeMiddleware(http.HandlerFunc(s.handlers.NotFound))
	s.router.MethodNotAllowedHandler = s.jsonContentTypeMiddleware(http.HandlerFunc(s.handlers.MethodNotAllowed))
}

// requestIDMiddleware reuses the caller's request id or generates one
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := pcontext.WithRequestID(r.Context(), r.Header.Get(RequestIDHeader))
		if user := r.Header.Get(UserHeader); user != "" {
			ctx = pcontext.WithUserID(ctx, user)
		}
		ctx = pcontext.WithStartTime(ctx, time.Now())

		w.Header().Set(RequestIDHeader, pcontext.GetRequestID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		logger.WithContext(r.Context(), s.logger).Debug("Request served",
			logger.WithField("method", r.Method),
			logger.WithField("path", r.URL.Path),
			logger.WithField("status", wrapper.statusCode),
			logger.WithField("remote", r.RemoteAddr))
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
