// Package server previews a site: it serves the output directory, rebuilds
// when sources change and tells open pages to reload.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sambeau/thyme/config"
	"github.com/sambeau/thyme/internal/logging"
	"github.com/sambeau/thyme/pkg/build"
	"github.com/sambeau/thyme/pkg/publish"
)

// Server is a preview server for one site.
type Server struct {
	config    *config.Config
	compiler  *build.Compiler
	publisher *publish.Publisher
	logger    *slog.Logger
	server    *http.Server
	watcher   *Watcher
}

// New creates a preview server. The publisher must write to cfg.OutputDir.
func New(cfg *config.Config, compiler *build.Compiler, publisher *publish.Publisher, logger *slog.Logger) *Server {
	return &Server{
		config:    cfg,
		compiler:  compiler,
		publisher: publisher,
		logger:    logging.OrDiscard(logger),
	}
}

// Handler returns the HTTP handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var files http.Handler = fileHandler(s.config.OutputDir)
	if s.config.Server.LiveReload {
		mux.Handle(LastModifiedPath, lastModifiedHandler(s.publisher))
		files = injectLiveReload(files)
	}
	mux.Handle("/", files)

	var handler http.Handler = newCompressionHandler(mux)
	if s.config.Logging.Level != "error" {
		handler = newRequestLogger(handler, s.logger)
	}
	return handler
}

// Rebuild re-renders and republishes after paths changed. A cancelled
// rebuild leaves its pages dirty for the next one.
func (s *Server) Rebuild(ctx context.Context, paths []string) {
	res, err := s.publisher.Update(ctx, s.compiler, paths)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		s.logger.Debug("rebuild cancelled", "paths", len(paths))
	case res == nil:
		s.logger.Error("rebuild failed", "error", err)
	default:
		s.logger.Error("publish failed", "error", err)
	}
}

// Run builds the site, starts the watcher and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	res, err := s.publisher.Build(ctx, s.compiler)
	if res == nil {
		return fmt.Errorf("building site: %w", err)
	}
	if err != nil {
		s.logger.Error("publish failed", "error", err)
	}

	watcher, err := NewWatcher(
		[]string{s.config.ContentDir, s.config.Theme.Dir},
		s.config.Path,
		s.Rebuild,
		s.logger,
	)
	if err != nil {
		s.logger.Error("failed to create watcher", "error", err)
	} else {
		s.watcher = watcher
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Error("failed to start watcher", "error", err)
		}
		defer s.watcher.Close()
	}

	addr := s.listenAddr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving site", "url", "http://"+addr, "dir", s.config.OutputDir)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	host := s.config.Server.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.config.Server.Port))
}
