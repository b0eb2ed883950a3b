package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pranganb/vtube/config"
	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/internal/db"
	"github.com/pranganb/vtube/internal/handlers"
	"github.com/pranganb/vtube/internal/media"
	"github.com/pranganb/vtube/internal/mq"
	"github.com/pranganb/vtube/internal/services"
	"github.com/pranganb/vtube/internal/storage"
	"github.com/pranganb/vtube/internal/store"
)

const mediaPrefix = "users"

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	logger     *slog.Logger
	stop       context.CancelFunc
}

// Deps are the external collaborators of the HTTP API.
type Deps struct {
	DB      *sql.DB
	Storage *storage.Storage
	Queue   *mq.MQ
}

// New connects to the database, media host and broker, then builds the server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return NewWithDeps(cfg, logger, Deps{DB: dbConn, Storage: objects, Queue: queue})
}

// NewWithDeps builds the server around already connected collaborators.
func NewWithDeps(cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.DB == nil || deps.Storage == nil {
		return nil, errors.New("database and storage are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	userRepo := store.NewUserRepository(deps.DB)
	profileRepo := store.NewProfileRepository(deps.DB)

	tokens := auth.NewTokenService(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	uploader := media.NewUploader(deps.Storage, mediaPrefix, logger)

	var events *services.Events
	if deps.Queue != nil {
		events = services.NewEvents(deps.Queue, cfg.MQ.Channel, logger)
	}

	userService := services.NewUserService(userRepo, uploader, events, logger)
	sessionService := services.NewSessionService(userRepo, tokens, events, logger)
	profileService := services.NewProfileService(profileRepo)

	userHandler := handlers.NewUserHandler(userService, sessionService, profileService,
		handlers.CookieOptions{
			Secure:     cfg.Auth.CookieSecure,
			AccessTTL:  cfg.Auth.AccessTokenExpiry,
			RefreshTTL: cfg.Auth.RefreshTokenExpiry,
		},
		handlers.UploadOptions{
			TempDir:  cfg.Upload.TempDir,
			MaxBytes: cfg.Upload.MaxBytes,
		},
	)

	limiter := handlers.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
	limiterCtx, stop := context.WithCancel(context.Background())
	go limiter.Run(limiterCtx, time.Minute)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if cfg.TrustProxy {
		// The auth rate limiter keys on the rewritten RemoteAddr.
		router.Use(middleware.RealIP)
	}
	router.Use(
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/v1/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, limiter.Middleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         deps.DB,
		queue:      deps.Queue,
		logger:     logger,
		stop:       stop,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		if qerr := s.queue.Close(); qerr != nil {
			s.logger.Warn("close message queue", "error", qerr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
