package service

import (
	"context"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/quiz"
)

// ProgressService builds per-user strength reports
type ProgressService struct {
	store backend.DataStore
}

// NewProgressService creates a progress service over store
func NewProgressService(store backend.DataStore) *ProgressService {
	return &ProgressService{store: store}
}

// Report classifies every word the user has progress on, weakest first
func (s *ProgressService) Report(ctx context.Context, userID string) (quiz.Report, error) {
	records, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return quiz.Report{}, err
	}
	if len(records) == 0 {
		return quiz.Aggregate(nil, nil), nil
	}

	items, err := s.store.ListVocabulary(ctx)
	if err != nil {
		return quiz.Report{}, err
	}
	return quiz.Aggregate(records, quiz.IndexVocabulary(items)), nil
}
