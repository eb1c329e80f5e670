package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"modvault/internal/config"
)

// Server runs the HTTP API with the standard middleware stack and graceful
// shutdown.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
}

// NewServer builds the server around a registered handler.
func NewServer(cfg config.ServerConfig, handler *Handler) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      WrapMiddleware(mux),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", s.cfg.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
