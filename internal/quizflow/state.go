// Package quizflow drives one user's quiz session as an explicit state machine.
//
// Reduce is a pure transition function from (State, Event) to the next State plus
// the side effects to run. A Controller owns a single event loop that applies the
// reducer, runs effects asynchronously, and feeds their results back as events.
package quizflow

import (
	"fmt"

	"vocabquiz/internal/models"
)

// View is the top-level screen
type View int

const (
	ViewUnauthenticated View = iota
	ViewQuiz
	ViewProgress
)

func (v View) String() string {
	switch v {
	case ViewQuiz:
		return "quiz"
	case ViewProgress:
		return "progress"
	default:
		return "unauthenticated"
	}
}

// MarshalText renders the view by name in JSON payloads
func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (v *View) UnmarshalText(text []byte) error {
	if string(text) == "unauthenticated" {
		*v = ViewUnauthenticated
		return nil
	}
	parsed, ok := ParseView(string(text))
	if !ok {
		return fmt.Errorf("unknown view %q", text)
	}
	*v = parsed
	return nil
}

// ParseView maps "quiz" and "progress" to their views
func ParseView(s string) (View, bool) {
	switch s {
	case "quiz":
		return ViewQuiz, true
	case "progress":
		return ViewProgress, true
	default:
		return ViewUnauthenticated, false
	}
}

// Phase is the position inside the quiz view
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAwaitingAnswer
	PhaseFeedback
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseFeedback:
		return "feedback"
	default:
		return "idle"
	}
}

// MarshalText renders the phase by name in JSON payloads
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseLoading, PhaseAwaitingAnswer, PhaseFeedback} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Feedback describes the answer that was just given
type Feedback struct {
	Correct         bool   `json:"correct"`
	CorrectMeaning  string `json:"correct_meaning"`
	SelectedMeaning string `json:"selected_meaning"`
}

// State is the complete quiz session state. It is a value; the reducer returns
// modified copies.
type State struct {
	User           *models.User      `json:"user,omitempty"`
	View           View              `json:"view"`
	Phase          Phase             `json:"phase"`
	Question       *models.OptionSet `json:"question,omitempty"`
	LastQuestionID int64             `json:"last_question_id,omitempty"`
	Feedback       *Feedback         `json:"feedback,omitempty"`

	// Notice is a blocking message for the user, e.g. when there is no vocabulary
	Notice string `json:"notice,omitempty"`
	// Error is set when loading failed; the session stays blocked in Loading
	Error string `json:"error,omitempty"`

	// Generation changes whenever outstanding work becomes stale. Effects carry
	// the generation they were issued in and their results are dropped on mismatch.
	Generation uint64 `json:"-"`
}

// Authenticated reports whether a user is signed in
func (s State) Authenticated() bool {
	return s.User != nil
}

// Event is an input to the reducer
type Event interface {
	event()
}

// SignedIn starts a quiz for user
type SignedIn struct{ User models.User }

// SignedOut drops the session back to Unauthenticated
type SignedOut struct{}

// ViewChanged switches between the quiz and progress screens
type ViewChanged struct{ View View }

// QuestionLoaded delivers the next question
type QuestionLoaded struct {
	Generation uint64
	Set        models.OptionSet
}

// QuestionFailed reports a failed question load
type QuestionFailed struct {
	Generation uint64
	Err        error
}

// AnswerSelected is the user clicking an option
type AnswerSelected struct{ Meaning string }

// AnswerRecorded reports that the answer write finished. Err is informational only.
type AnswerRecorded struct {
	Generation uint64
	Err        error
}

// FeedbackElapsed fires when the feedback delay is over
type FeedbackElapsed struct{ Generation uint64 }

func (SignedIn) event()        {}
func (SignedOut) event()       {}
func (ViewChanged) event()     {}
func (QuestionLoaded) event()  {}
func (QuestionFailed) event()  {}
func (AnswerSelected) event()  {}
func (AnswerRecorded) event()  {}
func (FeedbackElapsed) event() {}

// Effect is work the controller must perform after a transition
type Effect interface {
	effect()
}

// LoadQuestion asks for the next question, avoiding LastID
type LoadQuestion struct {
	Generation uint64
	UserID     string
	LastID     int64
}

// RecordAnswer persists the answer to Question
type RecordAnswer struct {
	Generation uint64
	UserID     string
	Question   models.Question
	Selected   string
}

// ScheduleNext arms the feedback timer
type ScheduleNext struct{ Generation uint64 }

// CancelTimer disarms any pending feedback timer
type CancelTimer struct{}

func (LoadQuestion) effect() {}
func (RecordAnswer) effect() {}
func (ScheduleNext) effect() {}
func (CancelTimer) effect()  {}
