package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/quizflow"
	"vocabquiz/internal/security"
	"vocabquiz/internal/service"
)

// Deps bundles everything the HTTP layer needs
type Deps struct {
	AuthService     *service.AuthService
	ProgressService *service.ProgressService
	Registry        *quizflow.Registry
	CSRF            *security.CSRFGenerator
	AuthLimiter     *security.RateLimiter
	Startup         *StartupStatus
	WaitTimeout     time.Duration
	Logger          *logrus.Logger
}

// NewRouter wires every route and wraps the mux with request logging
func NewRouter(d Deps) http.Handler {
	middleware := NewMiddleware(d.AuthService, d.CSRF, d.AuthLimiter, d.Logger)
	authHandler := NewAuthHandler(d.AuthService, d.Registry, d.CSRF, d.Logger)
	quizHandler := NewQuizHandler(d.Registry, d.WaitTimeout, d.Logger)
	progressHandler := NewProgressHandler(d.ProgressService, d.Logger)

	mux := http.NewServeMux()

	if d.Startup != nil {
		mux.HandleFunc("GET /healthz", d.Startup.Health)
	}

	// Public routes
	mux.HandleFunc("POST /auth/signup", middleware.RateLimit(authHandler.SignUp))
	mux.HandleFunc("POST /auth/login", middleware.RateLimit(authHandler.Login))

	// Protected routes
	mux.HandleFunc("POST /auth/logout", middleware.RequireAuth(middleware.CSRFProtect(authHandler.Logout)))
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /quiz", middleware.RequireAuth(quizHandler.Current))
	mux.HandleFunc("POST /quiz/answer", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.Answer)))
	mux.HandleFunc("POST /view", middleware.RequireAuth(middleware.CSRFProtect(quizHandler.SetView)))
	mux.HandleFunc("GET /progress", middleware.RequireAuth(progressHandler.Show))

	return Logging(d.Logger)(mux)
}
