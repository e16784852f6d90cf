package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"vocabquiz/internal/database"
	"vocabquiz/internal/models"
)

type wordRow struct {
	ID      int64  `db:"id"`
	Meaning string `db:"english_meaning"`
}

type formRow struct {
	EnglishID int64  `db:"english_id"`
	Type      string `db:"form_type"`
	Value     string `db:"form_value"`
}

// VocabRepository reads and maintains the reference vocabulary
type VocabRepository struct {
	db *database.DB
}

// NewVocabRepository creates a new vocabulary repository
func NewVocabRepository(db *database.DB) *VocabRepository {
	return &VocabRepository{db: db}
}

// ListVocabulary returns every word with its forms in stored order. Words without
// forms are included; callers decide whether they are usable.
func (r *VocabRepository) ListVocabulary(ctx context.Context) ([]models.VocabItem, error) {
	var words []wordRow
	if err := r.db.SelectContext(ctx, &words, "SELECT id, english_meaning FROM english_words ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}

	var forms []formRow
	query := "SELECT english_id, form_type, form_value FROM arabic_forms ORDER BY english_id, position, id"
	if err := r.db.SelectContext(ctx, &forms, query); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	byWord := lo.GroupBy(forms, func(f formRow) int64 { return f.EnglishID })

	return lo.Map(words, func(w wordRow, _ int) models.VocabItem {
		return models.VocabItem{
			ID:      w.ID,
			Meaning: w.Meaning,
			Forms: lo.Map(byWord[w.ID], func(f formRow, _ int) models.Form {
				return models.Form{Type: f.Type, Value: f.Value}
			}),
		}
	}), nil
}

// SaveWord stores meaning with forms, replacing the forms of an existing word with the
// same meaning. It returns the word ID and whether the word was newly created.
func (r *VocabRepository) SaveWord(ctx context.Context, meaning string, forms []models.Form) (int64, bool, error) {
	var (
		id      int64
		created bool
	)
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		existing, err := findWordID(ctx, tx, meaning)
		if err != nil {
			return err
		}

		if existing != 0 {
			id = existing
		} else {
			id, err = tx.ExecReturningID(ctx, "INSERT INTO english_words (english_meaning) VALUES (?)", meaning)
			if err != nil {
				return fmt.Errorf("failed to insert word %q: %w", meaning, err)
			}
			created = true
		}

		return replaceForms(ctx, tx, id, forms)
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// RestoreVocabulary writes items keeping their IDs, so progress records that refer
// to them stay valid. Existing rows with the same ID are overwritten.
func (r *VocabRepository) RestoreVocabulary(ctx context.Context, items []models.VocabItem) error {
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, item := range items {
			var count int
			if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM english_words WHERE id = ?", item.ID); err != nil {
				return fmt.Errorf("failed to check word %d: %w", item.ID, err)
			}

			query := "INSERT INTO english_words (id, english_meaning) VALUES (?, ?)"
			args := []interface{}{item.ID, item.Meaning}
			if count > 0 {
				query = "UPDATE english_words SET english_meaning = ? WHERE id = ?"
				args = []interface{}{item.Meaning, item.ID}
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to restore word %d: %w", item.ID, err)
			}

			if err := replaceForms(ctx, tx, item.ID, item.Forms); err != nil {
				return err
			}
		}

		if reset := tx.GetDialect().ResetSequenceQuery("english_words"); reset != "" {
			if _, err := tx.Tx.ExecContext(ctx, reset); err != nil {
				return fmt.Errorf("failed to reset word id sequence: %w", err)
			}
		}
		return nil
	})
	return err
}

// CountWords returns the number of stored words
func (r *VocabRepository) CountWords(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM english_words"); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

func findWordID(ctx context.Context, q database.DBTX, meaning string) (int64, error) {
	var id int64
	err := q.GetContext(ctx, &id, "SELECT id FROM english_words WHERE english_meaning = ?", meaning)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up word %q: %w", meaning, err)
	}
	return id, nil
}

func replaceForms(ctx context.Context, q database.DBTX, wordID int64, forms []models.Form) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM arabic_forms WHERE english_id = ?", wordID); err != nil {
		return fmt.Errorf("failed to clear forms for word %d: %w", wordID, err)
	}

	query := "INSERT INTO arabic_forms (english_id, form_type, form_value, position) VALUES (?, ?, ?, ?)"
	for i, form := range forms {
		if _, err := q.ExecContext(ctx, query, wordID, form.Type, form.Value, i); err != nil {
			return fmt.Errorf("failed to insert form for word %d: %w", wordID, err)
		}
	}
	return nil
}
