package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Router wires the REST routes behind recovery, logging and CORS.
func Router(logger *slog.Logger, handlers Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.PingHandler)
	mux.HandleFunc("GET /create", handlers.CreateRoom)
	mux.HandleFunc("GET /results/{code}", handlers.GetResult)

	return withRecover(logger, withLogging(logger, withCORS(mux)))
}

// Start serves the REST API on port until ctx is cancelled.
func Start(ctx context.Context, logger *slog.Logger, handlers Handlers, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return Serve(ctx, logger, handlers, listener)
}

// Serve runs the REST API on listener and returns once in-flight requests have drained
// after ctx is cancelled.
func Serve(ctx context.Context, logger *slog.Logger, handlers Handlers, listener net.Listener) error {
	srv := &http.Server{
		Handler:      Router(logger, handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown http server", "error", err)
	}

	logger.Info("http server stopped")

	return nil
}
