package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout bounds the graceful drain of in-flight requests
const shutdownTimeout = 30 * time.Second

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}

	var watcher *CertWatcher
	if s.tlsEnabled() {
		reloader, err := NewCertReloader(s.CertFile, s.KeyFile, s.logger)
		if err != nil {
			return err
		}
		httpServer.TLSConfig = reloader.TLSConfig()

		watcher = NewCertWatcher([]string{s.CertFile, s.KeyFile}, time.Second, reloader.reloadFromWatcher, s.logger)
		if err := watcher.Start(); err != nil {
			s.logger.Warn("Certificate hot reload disabled", "error", err)
			watcher = nil
		}
	}

	s.logServerInfo(httpServer.Addr)

	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		s.cleanup(watcher)
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Received shutdown signal, starting graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanup(watcher)

	s.logger.Info("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return httpServer.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanup(watcher *CertWatcher) {
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			s.logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.logger.Info("Rate limiter cleaned up")
	}
}

// logServerInfo shows the effective server configuration
func (s *Server) logServerInfo(addr string) {
	s.logger.Info("Starting HTTP server",
		"address", addr,
		"version", s.Version,
		"tls_enabled", s.tlsEnabled(),
		"api_auth", len(s.APIKeys) > 0,
		"rate_limiting", s.RateLimiter != nil,
		"max_body_bytes", s.MaxBodyBytes,
		"max_upload_bytes", s.MaxUploadBytes,
		"cors_origins", s.CORSOrigins)

	if len(s.APIKeys) == 0 {
		s.logger.Warn("API authentication disabled, recruiter endpoints are publicly accessible")
	}
	if s.RateLimiter == nil {
		s.logger.Warn("Rate limiting disabled")
	}
}
