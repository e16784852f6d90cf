package backend

import (
	"context"
	"fmt"
	"time"

	"vocabquiz/internal/database"
	"vocabquiz/internal/models"
	"vocabquiz/internal/repository"
	"vocabquiz/internal/security"
)

// SQL is the local Backend: vocabulary and progress in the configured database,
// users with bcrypt hashes, and JWT access tokens backed by revocable session rows.
type SQL struct {
	vocab    *repository.VocabRepository
	progress *repository.ProgressRepository
	users    *repository.UserRepository
	tokens   *security.TokenIssuer
	now      func() time.Time
}

// NewSQL creates the local backend over db
func NewSQL(db *database.DB, tokens *security.TokenIssuer) *SQL {
	return &SQL{
		vocab:    repository.NewVocabRepository(db),
		progress: repository.NewProgressRepository(db),
		users:    repository.NewUserRepository(db),
		tokens:   tokens,
		now:      time.Now,
	}
}

func (b *SQL) ListVocabulary(ctx context.Context) ([]models.VocabItem, error) {
	items, err := b.vocab.ListVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFetch, err)
	}
	return items, nil
}

func (b *SQL) GetProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	records, err := b.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFetch, err)
	}
	return records, nil
}

func (b *SQL) UpsertProgress(ctx context.Context, rec models.ProgressRecord) error {
	if err := b.progress.UpsertProgress(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// SignUp creates the account and signs it in
func (b *SQL) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	existing, err := b.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := b.users.CreateUser(ctx, security.GenerateID(), email, hash)
	if err != nil {
		return nil, err
	}

	return b.startSession(ctx, user)
}

// SignIn checks the password and opens a new session
func (b *SQL) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	user, err := b.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return b.startSession(ctx, user)
}

// SignOut revokes the session behind accessToken
func (b *SQL) SignOut(ctx context.Context, accessToken string) error {
	claims, err := b.tokens.Parse(accessToken)
	if err != nil {
		return ErrUnauthenticated
	}
	return b.users.DeleteSession(ctx, claims.ID)
}

// CurrentUser resolves accessToken to its user. Tokens whose session was revoked
// or has expired are rejected.
func (b *SQL) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := b.tokens.Parse(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := b.users.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != claims.Subject {
		return nil, ErrUnauthenticated
	}
	if session.IsExpired() {
		// Clean up expired session
		_ = b.users.DeleteSession(ctx, session.ID)
		return nil, ErrUnauthenticated
	}

	user, err := b.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// CleanupExpiredSessions removes expired sessions and returns how many were removed
func (b *SQL) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return b.users.DeleteExpiredSessions(ctx, b.now())
}

func (b *SQL) startSession(ctx context.Context, user *models.User) (*models.AuthSession, error) {
	sessionID := security.GenerateID()
	token, expiresAt, err := b.tokens.Issue(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := b.users.CreateSession(ctx, sessionID, user.ID, expiresAt); err != nil {
		return nil, err
	}

	return &models.AuthSession{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        *user,
	}, nil
}
