// Package server is the composition root: it opens the database, builds the
// services and the flux store, and maps routes onto the handlers.
//
//	config → sqlite.DB → services → flux.Store ← handlers ← chi router
//
// The store is the single source of truth for the client state. Handlers
// never call the services directly; they dispatch actions and report the
// resulting state.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/socialboard/internal/auth"
	"github.com/sakif/socialboard/internal/config"
	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/handler"
	"github.com/sakif/socialboard/internal/middleware"
	"github.com/sakif/socialboard/internal/repository"
	sqliteRepo "github.com/sakif/socialboard/internal/repository/sqlite"
	"github.com/sakif/socialboard/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the database, the store and the HTTP router. Close releases
// them in reverse order of creation.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	auth   *service.AuthService
	disp   *flux.Dispatcher
	store  *flux.Store

	closeOnce sync.Once
}

// New wires every dependency and starts the store: the persisted client
// state is rehydrated, a stored session is resumed and the feed is loaded.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupStore(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupStore(ctx context.Context) error {
	var (
		sessions repository.KVRepository
		tokens   *auth.TokenService
	)
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		sessions = s.db.KV()
	} else {
		s.logger.Warn("JWT_SECRET not set: sessions will not survive a restart")
	}

	var providers []auth.Provider
	if s.config.GitHub.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		))
	}

	s.auth = service.NewAuthService(
		s.db.Users(), sessions, tokens,
		auth.NewPasswordService(s.config.BcryptCost), s.logger, providers...,
	).WithAdminEmails(s.config.AdminEmails...)
	if _, err := s.auth.Restore(ctx); err != nil {
		s.logger.Warn("could not restore session", slog.String("error", err.Error()))
	}

	var persister flux.Persister
	if s.config.PersistState {
		persister = s.db.KV()
	}

	s.disp = flux.NewDispatcher(s.logger)
	s.store = flux.NewStore(s.disp, flux.Options{
		Auth:         s.auth,
		Posts:        service.NewPostService(s.db.Posts(), s.db.Users(), s.logger),
		Tasks:        service.NewTaskService(s.db.Tasks(), s.logger),
		Users:        service.NewUserService(s.db.Users(), s.logger),
		Persister:    persister,
		Logger:       s.logger,
		CallTimeout:  s.config.BackendTimeout,
		FetchRetries: s.config.FetchRetries,
	})
	if err := s.store.Start(ctx); err != nil {
		s.store.Close()
		return fmt.Errorf("starting store: %w", err)
	}
	return nil
}

// setupRoutes maps the HTTP surface. Middleware runs in the order added:
// request id, real IP, panic recovery, then request logging.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	actions := flux.NewActions(s.disp)
	states := handler.NewStateHandler(s.store, actions, s.logger)
	auths := handler.NewAuthHandler(s.store, actions, s.auth, s.logger)
	posts := handler.NewPostHandler(s.store, actions, s.logger)
	tasks := handler.NewTaskHandler(s.store, actions, s.logger)
	users := handler.NewUserHandler(s.store, actions, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", auths.HandleLogin)
		r.Post("/register", auths.HandleRegister)
		r.Post("/logout", auths.HandleLogout)
		r.Get("/{provider}/login", auths.HandleProviderLogin)
		r.Get("/{provider}/callback", auths.HandleProviderCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/state", states.HandleGet)
		r.Get("/state/events", states.HandleEvents)
		r.Delete("/error", states.HandleClearError)

		r.Post("/navigate", states.HandleNavigate)
		r.Post("/navigate/back", states.HandleBack)
		r.Post("/navigate/forward", states.HandleForward)

		r.Post("/posts", posts.HandleCreate)
		r.Put("/posts", posts.HandleReplace)
		r.Post("/posts/refresh", posts.HandleRefresh)
		r.Put("/posts/{id}", posts.HandleUpdate)
		r.Delete("/posts/{id}", posts.HandleDelete)

		r.Post("/tasks", tasks.HandleCreate)
		r.Post("/tasks/refresh", tasks.HandleRefresh)
		r.Patch("/tasks/{id}", tasks.HandleUpdateStatus)
		r.Delete("/tasks/{id}", tasks.HandleDelete)

		r.Post("/users/refresh", users.HandleRefresh)
		r.Patch("/users/{id}", users.HandleSetRole)
		r.Delete("/users/{id}", users.HandleDelete)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Store returns the flux store backing the HTTP surface.
func (s *Server) Store() *flux.Store { return s.store }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully:
// open event streams are ended, in-flight requests get shutdownTimeout to
// finish, and the store and database are closed.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	// Cancelled before Shutdown so long-lived event streams return.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		cancelBase()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close stops the store, waiting for in-flight backend calls, then closes
// the database. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.store.Close()
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database", slog.String("error", err.Error()))
		}
	})
}
