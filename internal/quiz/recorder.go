package quiz

import (
	"time"

	"vocabquiz/internal/models"
)

// Outcome is the scored result of one answer
type Outcome struct {
	Correct bool
	Record  models.ProgressRecord
}

// NextEase returns the new ease after an answer: one step up (capped) when
// correct, back to the minimum when wrong
func NextEase(current int, correct bool) int {
	if !correct {
		return models.MinEase
	}
	return min(current+1, models.MaxEase)
}

// ScoreAnswer compares the selected meaning with the question and returns the
// progress record that should be upserted for (userID, question item)
func ScoreAnswer(userID string, question models.Question, selected string, now time.Time) Outcome {
	correct := selected == question.Item.Meaning

	var prevCorrect, prevIncorrect int
	if question.Progress != nil {
		prevCorrect = question.Progress.CorrectCount
		prevIncorrect = question.Progress.IncorrectCount
	}

	record := models.ProgressRecord{
		UserID:         userID,
		VocabID:        question.Item.ID,
		Ease:           NextEase(question.Progress.EffectiveEase(), correct),
		Seen:           true,
		CorrectCount:   prevCorrect,
		IncorrectCount: prevIncorrect,
		LastSeen:       now.UTC(),
	}
	if correct {
		record.CorrectCount++
	} else {
		record.IncorrectCount++
	}

	return Outcome{Correct: correct, Record: record}
}
