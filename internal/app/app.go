// Package app assembles the server from configuration: database, backend,
// services, quiz controllers, background jobs and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/config"
	"vocabquiz/internal/database"
	"vocabquiz/internal/handlers"
	"vocabquiz/internal/quizflow"
	"vocabquiz/internal/scheduler"
	"vocabquiz/internal/security"
	"vocabquiz/internal/service"
	"vocabquiz/internal/supabase"
	"vocabquiz/migrations"
)

// Auth endpoints allow this many attempts per client IP per minute
const authAttemptsPerMinute = 10

// Job intervals
const (
	sessionCleanupInterval = time.Hour
	idleSweepInterval      = 5 * time.Minute
	rateLimitSweepInterval = 10 * time.Minute
)

// App holds the wired application
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	// DB is nil when the remote backend is selected
	DB      *database.DB
	Backend backend.Backend

	AuthService     *service.AuthService
	QuizService     *service.QuizService
	ProgressService *service.ProgressService

	Registry  *quizflow.Registry
	Scheduler *scheduler.Scheduler
	Startup   *handlers.StartupStatus

	csrf        *security.CSRFGenerator
	authLimiter *security.RateLimiter
}

// MigrationsFS returns the migration files to apply: the directory named by
// MIGRATIONS_PATH when set, the embedded copy otherwise
func MigrationsFS(cfg *config.Config) fs.FS {
	if cfg.MigrationsPath != "" {
		return os.DirFS(cfg.MigrationsPath)
	}
	return migrations.FS
}

// OpenDatabase connects to the configured database and brings its schema up to date
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*database.DB, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.WithField("db_type", cfg.DatabaseType).Info("Database connection established")

	applied, err := db.RunMigrations(ctx, MigrationsFS(cfg))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, name := range applied {
		logger.WithField("migration", name).Info("Applied migration")
	}
	return db, nil
}

// NewBackend builds the data and auth backend selected by BACKEND. The returned
// database is nil for the remote backend.
func NewBackend(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (backend.Backend, *database.DB, error) {
	switch cfg.Backend {
	case config.BackendSQL, "":
		db, err := OpenDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.SessionDuration)
		return backend.NewSQL(db, tokens), db, nil

	case config.BackendSupabase:
		client, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, supabase.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		logger.WithField("url", cfg.SupabaseURL).Info("Using remote backend")
		return client, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// New wires every component. Background jobs do not start until Run.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepServices,
		handlers.StepScheduler,
	)

	startup.SetCurrentStep(handlers.StepDatabase)
	be, db, err := NewBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	startup.CompleteStep(handlers.StepDatabase)
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepServices)
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		// sign-up works without the welcome mail
		logger.WithError(err).Warn("Email service unavailable")
		emailService = nil
	}

	var welcome service.WelcomeSender
	if emailService != nil && emailService.IsEnabled() {
		welcome = emailService
	}

	quizService := service.NewQuizService(be, nil, logger)
	a := &App{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		Backend:         be,
		AuthService:     service.NewAuthService(be, welcome, logger),
		QuizService:     quizService,
		ProgressService: service.NewProgressService(be),
		Registry: quizflow.NewRegistry(quizflow.Options{
			Loader:        quizService,
			Recorder:      quizService,
			FeedbackDelay: cfg.FeedbackDelay,
			Logger:        logger,
		}),
		Scheduler:   scheduler.New(logger),
		Startup:     startup,
		csrf:        security.NewCSRFGenerator(cfg.CSRFSecret),
		authLimiter: security.NewRateLimiter(authAttemptsPerMinute, time.Minute),
	}
	startup.CompleteStep(handlers.StepServices)

	if cleaner, ok := be.(scheduler.SessionCleaner); ok {
		a.Scheduler.Add(scheduler.SessionCleanupJob(cleaner, sessionCleanupInterval))
	}
	a.Scheduler.Add(
		scheduler.IdleQuizSweepJob(a.Registry, cfg.IdleSessionTTL, idleSweepInterval),
		scheduler.RateLimitSweepJob(a.authLimiter, rateLimitSweepInterval),
	)

	return a, nil
}

// Handler returns the HTTP router
func (a *App) Handler() http.Handler {
	return handlers.NewRouter(handlers.Deps{
		AuthService:     a.AuthService,
		ProgressService: a.ProgressService,
		Registry:        a.Registry,
		CSRF:            a.csrf,
		AuthLimiter:     a.authLimiter,
		Startup:         a.Startup,
		WaitTimeout:     handlers.DefaultWaitTimeout,
		Logger:          a.Logger,
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	a.Startup.SetCurrentStep(handlers.StepScheduler)
	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	a.Startup.CompleteStep(handlers.StepScheduler)

	addr := ":" + a.Config.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.Startup.MarkReady()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close stops background work and releases the database
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Registry.CloseAll()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close database")
		}
	}
}
