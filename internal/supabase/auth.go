package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u authUser) model() models.User {
	return models.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// tokenResponse is returned by signup and password grant. When email confirmation
// is enabled signup returns only the user fields at the top level.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   int64     `json:"expires_at"`
	User        *authUser `json:"user"`

	authUser
}

func (t tokenResponse) session(now time.Time) (*models.AuthSession, error) {
	if t.AccessToken == "" || t.User == nil {
		return nil, backend.ErrConfirmationRequired
	}

	expiresAt := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	if t.ExpiresAt > 0 {
		expiresAt = time.Unix(t.ExpiresAt, 0)
	}
	return &models.AuthSession{
		AccessToken: t.AccessToken,
		ExpiresAt:   expiresAt.UTC(),
		User:        t.User.model(),
	}, nil
}

// SignUp registers the email and returns a session when the project auto-confirms
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	var resp tokenResponse
	err := c.do(ctx, "", http.MethodPost, c.endpoint(authPath+"signup", nil), nil, credentials{email, password}, &resp)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return resp.session(c.now())
}

// SignIn uses the password grant
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	query := url.Values{}
	query.Set("grant_type", "password")

	var resp tokenResponse
	err := c.do(ctx, "", http.MethodPost, c.endpoint(authPath+"token", query), nil, credentials{email, password}, &resp)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return resp.session(c.now())
}

// SignOut revokes the refresh tokens behind accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return backend.ErrUnauthenticated
	}
	err := c.do(ctx, accessToken, http.MethodPost, c.endpoint(authPath+"logout", nil), nil, nil, nil)
	return mapAuthError(err)
}

// CurrentUser resolves accessToken through GoTrue
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, backend.ErrUnauthenticated
	}
	var user authUser
	if err := c.do(ctx, accessToken, http.MethodGet, c.endpoint(authPath+"user", nil), nil, nil, &user); err != nil {
		return nil, mapAuthError(err)
	}
	if user.ID == "" {
		return nil, backend.ErrUnauthenticated
	}
	u := user.model()
	return &u, nil
}

func mapAuthError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" ||
		strings.Contains(strings.ToLower(apiErr.Message), "already registered"):
		return backend.ErrEmailTaken
	case apiErr.Code == "invalid_credentials" || apiErr.Code == "invalid_grant":
		return backend.ErrInvalidCredentials
	case apiErr.Code == "email_not_confirmed":
		return backend.ErrConfirmationRequired
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return backend.ErrUnauthenticated
	}
	return err
}
