package quizflow

import (
	"errors"

	"vocabquiz/internal/quiz"
)

// NoVocabularyNotice is shown when there is nothing to quiz on
const NoVocabularyNotice = "No vocab data found."

// Reduce applies ev to s and returns the next state with the effects to run.
// It never mutates s.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case SignedIn:
		user := ev.User
		next := State{
			User:       &user,
			Generation: s.Generation + 1,
		}
		return enterQuiz(next)

	case SignedOut:
		return State{Generation: s.Generation + 1}, []Effect{CancelTimer{}}

	case ViewChanged:
		if !s.Authenticated() || ev.View == s.View {
			return s, nil
		}
		switch ev.View {
		case ViewQuiz:
			next := s
			next.Generation++
			return enterQuiz(next)
		case ViewProgress:
			// leaving the quiz abandons the current question and any pending timer
			next := State{
				User:           s.User,
				View:           ViewProgress,
				Phase:          PhaseIdle,
				LastQuestionID: s.LastQuestionID,
				Generation:     s.Generation + 1,
			}
			return next, []Effect{CancelTimer{}}
		}
		return s, nil

	case QuestionLoaded:
		if ev.Generation != s.Generation || s.Phase != PhaseLoading {
			return s, nil
		}
		set := ev.Set
		next := s
		next.Phase = PhaseAwaitingAnswer
		next.Question = &set
		next.LastQuestionID = set.Question.Item.ID
		next.Feedback = nil
		next.Notice = ""
		next.Error = ""
		return next, nil

	case QuestionFailed:
		if ev.Generation != s.Generation || s.Phase != PhaseLoading {
			return s, nil
		}
		next := s
		if errors.Is(ev.Err, quiz.ErrNoVocabulary) {
			next.Notice = NoVocabularyNotice
			next.Error = ""
		} else {
			next.Notice = ""
			next.Error = "Could not load the next question"
		}
		return next, nil

	case AnswerSelected:
		if s.View != ViewQuiz || s.Phase != PhaseAwaitingAnswer || s.Question == nil {
			return s, nil
		}
		if !s.Question.HasOption(ev.Meaning) {
			return s, nil
		}
		question := s.Question.Question
		next := s
		next.Phase = PhaseFeedback
		next.Feedback = &Feedback{
			Correct:         ev.Meaning == question.Item.Meaning,
			CorrectMeaning:  question.Item.Meaning,
			SelectedMeaning: ev.Meaning,
		}
		return next, []Effect{RecordAnswer{
			Generation: s.Generation,
			UserID:     s.User.ID,
			Question:   question,
			Selected:   ev.Meaning,
		}}

	case AnswerRecorded:
		if ev.Generation != s.Generation || s.Phase != PhaseFeedback {
			return s, nil
		}
		return s, []Effect{ScheduleNext{Generation: s.Generation}}

	case FeedbackElapsed:
		if ev.Generation != s.Generation || s.Phase != PhaseFeedback {
			return s, nil
		}
		next := s
		next.Generation++
		return enterQuiz(next)
	}

	return s, nil
}

func enterQuiz(s State) (State, []Effect) {
	s.View = ViewQuiz
	s.Phase = PhaseLoading
	s.Question = nil
	s.Feedback = nil
	s.Notice = ""
	s.Error = ""
	return s, []Effect{LoadQuestion{
		Generation: s.Generation,
		UserID:     s.User.ID,
		LastID:     s.LastQuestionID,
	}}
}
