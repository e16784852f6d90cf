package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/models"
	"vocabquiz/internal/quizflow"
	"vocabquiz/internal/security"
	"vocabquiz/internal/service"
	"vocabquiz/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	registry    *quizflow.Registry
	csrf        *security.CSRFGenerator
	logger      *logrus.Entry
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, registry *quizflow.Registry, csrf *security.CSRFGenerator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		registry:    registry,
		csrf:        csrf,
		logger:      logger.WithField("handler", "auth"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	CSRFToken   string      `json:"csrf_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignUp handles account creation
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	session, err := h.authService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		var ve validation.ValidationError
		switch {
		case errors.As(err, &ve):
			respondWithError(w, h.logger, http.StatusBadRequest, ve.Message, "", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respondWithError(w, h.logger, http.StatusConflict, "An account with that email already exists", "", nil)
		case errors.Is(err, service.ErrConfirmationRequired):
			writeJSON(w, http.StatusAccepted, messageResponse{Message: "Check your email to confirm your account, then sign in."})
		default:
			respondWithError(w, h.logger, http.StatusBadGateway, "Could not create account", "Sign up failed", err)
		}
		return
	}

	h.startSession(w, r, http.StatusCreated, session)
}

// Login handles password sign-in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondWithError(w, h.logger, http.StatusUnauthorized, "Invalid email or password", "", nil)
		case errors.Is(err, service.ErrConfirmationRequired):
			respondWithError(w, h.logger, http.StatusForbidden, "Please confirm your email before signing in", "", nil)
		default:
			respondWithError(w, h.logger, http.StatusBadGateway, "Could not sign in", "Sign in failed", err)
		}
		return
	}

	// a fresh sign-in starts a fresh quiz bound to the new token
	h.registry.Release(session.User.ID)
	h.startSession(w, r, http.StatusOK, session)
}

// Logout revokes the caller's token and ends their quiz
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if err := h.authService.SignOut(r.Context(), security.AccessToken(r)); err != nil {
		h.logger.WithError(err).Warn("Failed to revoke session")
	}
	if user != nil {
		h.registry.Release(user.ID)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user and a CSRF token for cookie clients
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, h.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	csrfToken, err := h.csrf.GenerateToken(security.AccessToken(r))
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: *user, CSRFToken: csrfToken})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.AuthSession) {
	csrfToken, err := h.csrf.GenerateToken(session.AccessToken)
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.AccessToken, session.ExpiresAt))
	expiresAt := session.ExpiresAt
	writeJSON(w, status, sessionResponse{
		User:        session.User,
		AccessToken: session.AccessToken,
		ExpiresAt:   &expiresAt,
		CSRFToken:   csrfToken,
	})
}
