package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/config"
)

const defaultShutdownTimeout = 30 * time.Second

// ServeAndWait runs an HTTP server for the given handler and blocks until
// ctx is canceled or the server fails, then drains in-flight requests with
// a graceful shutdown bounded by the configured timeout.
func ServeAndWait(ctx context.Context, handler http.Handler, logger *zap.Logger, cfg *config.ServerConfig) error {
	if handler == nil {
		return errors.New("nil handler")
	}
	if cfg == nil {
		return errors.New("nil server config")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-serveErr:
		if runErr != nil {
			logger.Error("HTTP server failed", zap.Error(runErr))
		}
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("http server: %w", runErr)
	}

	logger.Info("HTTP server stopped")
	return nil
}
