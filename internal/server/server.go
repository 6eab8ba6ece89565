package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gzapi/GZPlayer/internal/catalog"
	"github.com/gzapi/GZPlayer/internal/config"
	"github.com/gzapi/GZPlayer/internal/data"
	"github.com/gzapi/GZPlayer/internal/logocache"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 60 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server provides the HTTP server with lifecycle management.
type Server struct {
	log       logrus.FieldLogger
	cfg       *config.Config
	store     *catalog.Store
	loader    *data.Loader
	refresher *data.Refresher
	storage   *logocache.Storage
	logos     *logocache.Cache
	server    *http.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a new server instance.
func NewServer(log logrus.FieldLogger, cfg *config.Config) *Server {
	store := catalog.NewStore()
	loader := data.NewLoader(log, store)

	s := &Server{
		log:    log.WithField("component", "server"),
		cfg:    cfg,
		store:  store,
		loader: loader,
	}

	if cfg.M3UURL != "" {
		s.refresher = data.NewRefresher(log, loader, cfg.M3UURL, cfg.RefreshInterval)
	}

	return s
}

// Start starts the server: opens the logo store, loads the initial playlist
// when a source URL is configured, and begins serving HTTP.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("server already running")
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	storage, err := logocache.OpenStorage(filepath.Join(s.cfg.CacheDir, "logos.db"))
	if err != nil {
		cancel()

		return fmt.Errorf("failed to open logo store: %w", err)
	}

	s.storage = storage
	s.logos = logocache.New(s.log, logocache.Config{
		MaxBytes:           s.cfg.LogoCacheMaxBytes,
		MaxItems:           s.cfg.LogoCacheMaxItems,
		TTL:                s.cfg.LogoCacheTTL,
		SweepInterval:      s.cfg.LogoSweepInterval,
		PreloadConcurrency: s.cfg.PreloadConcurrency,
	}, storage)

	if s.cfg.M3UURL != "" {
		s.log.Info("Loading initial playlist")

		built, loadErr := s.loader.LoadURL(serverCtx, s.cfg.M3UURL)
		if loadErr != nil {
			cancel()
			s.closeStorage()

			return fmt.Errorf("failed to load initial playlist: %w", loadErr)
		}

		go s.logos.Preload(serverCtx, built.LogoURLs())

		if err := s.refresher.Start(serverCtx); err != nil {
			cancel()
			s.closeStorage()

			return fmt.Errorf("failed to start refresher: %w", err)
		}
	}

	go s.logos.RunSweeper(serverCtx)

	routes := NewRoutes(s.log, s.store, s.loader, s.logos)

	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      routes.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go s.run(serverCtx)

	s.log.WithField("addr", s.cfg.ListenAddr()).Info("Server started")

	return nil
}

// Stop stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	if done != nil {
		<-done
	}

	if s.refresher != nil {
		if err := s.refresher.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop refresher")
		}
	}

	s.closeStorage()

	s.log.Info("Server stopped")

	return nil
}

func (s *Server) closeStorage() {
	if err := s.storage.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close logo store")
	}
}

func (s *Server) run(ctx context.Context) {
	defer close(s.done)

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down server")
	case err := <-errCh:
		if err != nil {
			s.log.WithError(err).Error("Server error")
		}

		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("Server shutdown error")
	}
}
