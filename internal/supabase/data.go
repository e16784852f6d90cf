package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
)

const (
	vocabSelect    = `id,"English Meaning",arabic_forms(form_type,form_value)`
	progressSelect = "user_id,english_id,ease,seen,correct_count,incorrect_count,last_seen"
)

type wordRow struct {
	ID      int64         `json:"id"`
	Meaning string        `json:"English Meaning"`
	Forms   []models.Form `json:"arabic_forms"`
}

type progressRow struct {
	UserID         string     `json:"user_id"`
	VocabID        int64      `json:"english_id"`
	Ease           int        `json:"ease"`
	Seen           bool       `json:"seen"`
	CorrectCount   int        `json:"correct_count"`
	IncorrectCount int        `json:"incorrect_count"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
}

// ListVocabulary fetches every word with its embedded forms
func (c *Client) ListVocabulary(ctx context.Context) ([]models.VocabItem, error) {
	query := url.Values{}
	query.Set("select", vocabSelect)
	query.Set("order", "id.asc")

	var rows []wordRow
	if err := c.do(ctx, backend.AccessTokenFrom(ctx), http.MethodGet, c.endpoint(restPath+"english_words", query), nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrDataFetch, err)
	}

	return lo.Map(rows, func(row wordRow, _ int) models.VocabItem {
		return models.VocabItem{ID: row.ID, Meaning: row.Meaning, Forms: row.Forms}
	}), nil
}

// GetProgress fetches the user's progress rows
func (c *Client) GetProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	query := url.Values{}
	query.Set("select", progressSelect)
	query.Set("user_id", "eq."+userID)

	var rows []progressRow
	if err := c.do(ctx, backend.AccessTokenFrom(ctx), http.MethodGet, c.endpoint(restPath+"user_progress", query), nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrDataFetch, err)
	}

	return lo.Map(rows, func(row progressRow, _ int) models.ProgressRecord {
		rec := models.ProgressRecord{
			UserID:         row.UserID,
			VocabID:        row.VocabID,
			Ease:           row.Ease,
			Seen:           row.Seen,
			CorrectCount:   row.CorrectCount,
			IncorrectCount: row.IncorrectCount,
		}
		if row.LastSeen != nil {
			rec.LastSeen = *row.LastSeen
		}
		return rec
	}), nil
}

// UpsertProgress writes the record, merging on (user_id, english_id)
func (c *Client) UpsertProgress(ctx context.Context, rec models.ProgressRecord) error {
	query := url.Values{}
	query.Set("on_conflict", "user_id,english_id")

	headers := http.Header{}
	headers.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	lastSeen := rec.LastSeen
	if lastSeen.IsZero() {
		lastSeen = c.now()
	}
	lastSeen = lastSeen.UTC()
	row := progressRow{
		UserID:         rec.UserID,
		VocabID:        rec.VocabID,
		Ease:           rec.Ease,
		Seen:           rec.Seen,
		CorrectCount:   rec.CorrectCount,
		IncorrectCount: rec.IncorrectCount,
		LastSeen:       &lastSeen,
	}

	if err := c.do(ctx, backend.AccessTokenFrom(ctx), http.MethodPost, c.endpoint(restPath+"user_progress", query), headers, row, nil); err != nil {
		return fmt.Errorf("%w: %w", backend.ErrWrite, err)
	}
	return nil
}
