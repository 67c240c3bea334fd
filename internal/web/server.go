// Package web provides the HTTP API for generating and validating proofs.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/timbra/timbra-proofs/internal/neynar"
	"github.com/timbra/timbra-proofs/internal/proof"
	"github.com/timbra/timbra-proofs/internal/spotify"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr      string
	Signer    *proof.Signer
	Verifier  *proof.Verifier
	Store     proof.Store
	Farcaster *neynar.Client // optional fid verification

	// NewSpotify overrides Spotify client construction (used in tests).
	NewSpotify func(ctx context.Context, accessToken string) *spotify.Client
}

// Server is the HTTP server for the proof API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
}

// NewServer creates a new proof API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Signer == nil || cfg.Verifier == nil {
		return nil, errors.New("server requires a signer and verifier")
	}
	if cfg.Store == nil {
		return nil, errors.New("server requires a proof store")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	handlers := NewHandlers(cfg.Signer, cfg.Verifier, cfg.Store, cfg.Farcaster, cfg.NewSpotify)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: handlers,
	}

	// Configure middleware
	s.setupMiddleware()

	// Configure routes
	s.setupRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the proof API.
func (s *Server) setupRoutes() {
	s.router.Route("/api/proofs", func(r chi.Router) {
		r.Post("/generate", s.handlers.GenerateProof)
		r.Post("/validate", s.handlers.ValidateProof)
		r.Get("/validate", s.handlers.ValidateProofByID)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	// Channel to receive shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-stop:
		log.Println("Shutting down server...")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
