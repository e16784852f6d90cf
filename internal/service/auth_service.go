package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
	"vocabquiz/internal/validation"
)

var (
	ErrInvalidCredentials   = backend.ErrInvalidCredentials
	ErrEmailTaken           = backend.ErrEmailTaken
	ErrUnauthenticated      = backend.ErrUnauthenticated
	ErrConfirmationRequired = backend.ErrConfirmationRequired
)

// WelcomeSender sends the post sign-up email
type WelcomeSender interface {
	SendWelcomeEmail(ctx context.Context, toEmail string) error
}

// AuthService validates credentials before handing them to the auth backend
type AuthService struct {
	auth   backend.Authenticator
	email  WelcomeSender
	logger *logrus.Entry
}

// NewAuthService creates a new auth service. email may be nil.
func NewAuthService(auth backend.Authenticator, email WelcomeSender, logger *logrus.Logger) *AuthService {
	return &AuthService{
		auth:   auth,
		email:  email,
		logger: logger.WithField("service", "auth"),
	}
}

// SignUp creates a new account and signs it in
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	session, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrEmailTaken) && !errors.Is(err, ErrConfirmationRequired) {
			s.logger.WithError(err).WithField("email", email).Error("Sign up failed")
		}
		return nil, err
	}

	s.logger.WithField("user_id", session.User.ID).Info("User signed up")

	if s.email != nil {
		// Log but don't fail sign-up
		if err := s.email.SendWelcomeEmail(ctx, email); err != nil {
			s.logger.WithError(err).WithField("email", email).Warn("Failed to send welcome email")
		}
	}
	return session, nil
}

// SignIn authenticates with email and password
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", session.User.ID).Debug("User signed in")
	return session, nil
}

// SignOut revokes the access token
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	return s.auth.SignOut(ctx, accessToken)
}

// CurrentUser returns the user behind accessToken
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}
	return s.auth.CurrentUser(ctx, accessToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
