package service

import (
	"context"
	"sync"

	"vocabquiz/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	vocab    []models.VocabItem
	progress []models.ProgressRecord
	upserts  []models.ProgressRecord

	vocabErr    error
	progressErr error
	upsertErr   error
}

func (f *fakeStore) ListVocabulary(context.Context) ([]models.VocabItem, error) {
	if f.vocabErr != nil {
		return nil, f.vocabErr
	}
	return f.vocab, nil
}

func (f *fakeStore) GetProgress(_ context.Context, userID string) ([]models.ProgressRecord, error) {
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProgressRecord
	for _, p := range f.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertProgress(_ context.Context, rec models.ProgressRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, rec)
	return nil
}

func word(id int64, meaning, arabic string) models.VocabItem {
	return models.VocabItem{ID: id, Meaning: meaning, Forms: []models.Form{{Type: "singular", Value: arabic}}}
}

func testVocab() []models.VocabItem {
	return []models.VocabItem{
		word(1, "cat", "قطة"),
		word(2, "dog", "كلب"),
		word(3, "book", "كتاب"),
		word(4, "house", "بيت"),
		word(5, "water", "ماء"),
	}
}
