// package server contains the router, middleware and handlers for the local vibelist HTTP endpoints
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows its own routes.
type Handler interface {
	http.Handler
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

const shutdownTimeout = 5 * time.Second

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
