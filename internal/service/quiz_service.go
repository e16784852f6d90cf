package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
	"vocabquiz/internal/quiz"
)

// QuizService loads questions and records answers for the quiz flow
type QuizService struct {
	store   backend.DataStore
	sampler *quiz.Sampler
	logger  *logrus.Entry
	now     func() time.Time
}

// NewQuizService creates a quiz service over store
func NewQuizService(store backend.DataStore, sampler *quiz.Sampler, logger *logrus.Logger) *QuizService {
	if sampler == nil {
		sampler = quiz.NewSampler()
	}
	return &QuizService{
		store:   store,
		sampler: sampler,
		logger:  logger.WithField("service", "quiz"),
		now:     time.Now,
	}
}

// NextQuestion fetches the vocabulary and the user's progress, then picks a
// weighted question other than lastID along with its shuffled options
func (s *QuizService) NextQuestion(ctx context.Context, userID string, lastID int64) (models.OptionSet, error) {
	items, err := s.store.ListVocabulary(ctx)
	if err != nil {
		return models.OptionSet{}, err
	}

	records, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return models.OptionSet{}, err
	}
	progress := quiz.IndexProgress(records)

	question, err := s.sampler.SelectQuestion(items, progress, lastID)
	if err != nil {
		return models.OptionSet{}, err
	}

	set := s.sampler.PickOptions(items, question, progress)
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"vocab_id": question.Item.ID,
		"ease":     question.Progress.EffectiveEase(),
		"options":  len(set.Options),
	}).Debug("Selected question")
	return set, nil
}

// RecordAnswer scores the answer against the progress snapshot carried by
// question and upserts the result
func (s *QuizService) RecordAnswer(ctx context.Context, userID string, question models.Question, selected string) error {
	outcome := quiz.ScoreAnswer(userID, question, selected, s.now())
	if err := s.store.UpsertProgress(ctx, outcome.Record); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"vocab_id": question.Item.ID,
		"correct":  outcome.Correct,
		"ease":     outcome.Record.Ease,
	}).Debug("Recorded answer")
	return nil
}
