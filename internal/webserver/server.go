// Package webserver serves the live status view of running and finished
// batches: a small HTML index plus the JSON API from internal/webapi.
package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/gradeflow/gradeflow/internal/webapi"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string
	Port int
	// ResultsDir is scanned for ledger files of finished batches.
	ResultsDir     string
	AllowedOrigins []string
	NoBrowser      bool
	Logger         *slog.Logger
	// Registry receives live batches; one is created when nil.
	Registry *webapi.Registry
}

// Server wraps the HTTP server with configuration.
type Server struct {
	cfg      Config
	srv      *http.Server
	logger   *slog.Logger
	registry *webapi.Registry
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.Registry == nil {
		cfg.Registry = webapi.NewRegistry()
	}

	n, err := cfg.Registry.LoadLedgerDir(cfg.ResultsDir)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		cfg.Logger.Info("loaded finished batches", "dir", cfg.ResultsDir, "count", n)
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: cfg.Registry,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           newRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return s, nil
}

// Registry returns the registry that live batches should be added to.
func (s *Server) Registry() *webapi.Registry {
	return s.registry
}

// URL is the address printed for users.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.srv.Addr)
}

// ListenAndServe starts the HTTP server and optionally opens a browser.
// It returns when ctx is canceled and the server has shut down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	url := s.URL()
	s.logger.Info("HTTP server starting", "address", s.srv.Addr, "url", url)

	if !s.cfg.NoBrowser {
		// Open browser in background after a short delay.
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				s.logger.Debug("failed to open browser", "error", err)
			}
		}()
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
