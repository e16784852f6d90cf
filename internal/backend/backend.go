// Package backend defines the data-access and auth boundary of the quiz. The
// sql implementation lives here; the hosted REST implementation is in package supabase.
package backend

import (
	"context"
	"errors"

	"vocabquiz/internal/models"
)

var (
	// ErrDataFetch wraps any failure to read vocabulary or progress
	ErrDataFetch = errors.New("failed to fetch data")
	// ErrWrite wraps any failure to persist a progress record
	ErrWrite = errors.New("failed to write progress")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUnauthenticated    = errors.New("not signed in")

	// ErrConfirmationRequired means the account exists but must be confirmed before sign-in
	ErrConfirmationRequired = errors.New("check your email to confirm your account")
)

// DataStore reads the vocabulary and reads/writes per-user progress
type DataStore interface {
	ListVocabulary(ctx context.Context) ([]models.VocabItem, error)
	GetProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	UpsertProgress(ctx context.Context, rec models.ProgressRecord) error
}

// Authenticator is the opaque sign-up / sign-in / current-user capability
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// Backend is a complete persistence and auth provider
type Backend interface {
	DataStore
	Authenticator
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's access token to ctx. Backends that enforce
// row-level security on the server read it back for data calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token set by WithAccessToken, or ""
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
