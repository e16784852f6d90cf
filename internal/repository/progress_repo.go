package repository

import (
	"context"
	"fmt"

	"vocabquiz/internal/database"
	"vocabquiz/internal/models"
)

const progressSelect = `
	SELECT user_id, english_id, ease, seen, correct_count, incorrect_count, last_seen
	FROM user_progress
`

// ProgressRepository reads and writes per-user mastery records
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetProgress returns every progress record belonging to userID
func (r *ProgressRepository) GetProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	query := progressSelect + " WHERE user_id = ? ORDER BY english_id"
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get progress for user %s: %w", userID, err)
	}
	return records, nil
}

// ListAll returns every progress record of every user
func (r *ProgressRepository) ListAll(ctx context.Context) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := r.db.SelectContext(ctx, &records, progressSelect+" ORDER BY user_id, english_id"); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

// UpsertProgress inserts rec or replaces the stored record with the same (user, item) key
func (r *ProgressRepository) UpsertProgress(ctx context.Context, rec models.ProgressRecord) error {
	return upsertProgress(ctx, r.db, rec)
}

// RestoreProgress upserts records in a single transaction
func (r *ProgressRepository) RestoreProgress(ctx context.Context, records []models.ProgressRecord) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, rec := range records {
			if err := upsertProgress(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProgress(ctx context.Context, q database.DBTX, rec models.ProgressRecord) error {
	_, err := q.ExecContext(ctx, q.GetDialect().UpsertProgressQuery(),
		rec.UserID,
		rec.VocabID,
		rec.Ease,
		rec.Seen,
		rec.CorrectCount,
		rec.IncorrectCount,
		rec.LastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress for user %s word %d: %w", rec.UserID, rec.VocabID, err)
	}
	return nil
}
