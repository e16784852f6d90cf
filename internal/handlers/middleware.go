package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
	"vocabquiz/internal/security"
	"vocabquiz/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	logger      *logrus.Entry
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, logger *logrus.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		logger:      logger.WithField("component", "http"),
	}
}

// RequireAuth rejects requests without a valid access token. The user and the token
// are attached to the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.AccessToken(r)
		if token == "" {
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		user, err := m.authService.CurrentUser(r.Context(), token)
		if err != nil || user == nil {
			// Clear invalid cookie
			if _, cerr := r.Cookie(security.SessionCookieName); cerr == nil {
				http.SetCookie(w, security.CreateDeleteCookie(r))
			}
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "Access token rejected", err)
			return
		}

		ctx := backend.WithAccessToken(r.Context(), token)
		ctx = context.WithValue(ctx, UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect requires cookie-authenticated requests to echo the CSRF token in the
// X-CSRF-Token header. Bearer-authenticated clients are exempt.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			token := security.AccessToken(r)
			if !m.csrf.ValidateToken(token, r.Header.Get(security.CSRFHeader)) {
				respondWithError(w, m.logger, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
				return
			}
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			m.logger.WithField("ip", ip).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			respondWithError(w, m.logger, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Info("HTTP request")
		})
	}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
