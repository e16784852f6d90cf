package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/models"
	"vocabquiz/internal/quizflow"
)

// DefaultWaitTimeout bounds how long a request waits for the quiz to settle
const DefaultWaitTimeout = 5 * time.Second

// QuizHandler exposes the per-user quiz controller over HTTP
type QuizHandler struct {
	registry    *quizflow.Registry
	waitTimeout time.Duration
	logger      *logrus.Entry
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(registry *quizflow.Registry, waitTimeout time.Duration, logger *logrus.Logger) *QuizHandler {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &QuizHandler{
		registry:    registry,
		waitTimeout: waitTimeout,
		logger:      logger.WithField("handler", "quiz"),
	}
}

// questionView hides the answer: only the Arabic forms and the option meanings are sent
type questionView struct {
	ID      int64         `json:"id"`
	Forms   []models.Form `json:"forms"`
	Options []string      `json:"options"`
}

type quizResponse struct {
	View     quizflow.View      `json:"view"`
	Phase    quizflow.Phase     `json:"phase"`
	Question *questionView      `json:"question,omitempty"`
	Feedback *quizflow.Feedback `json:"feedback,omitempty"`
	Notice   string             `json:"notice,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func newQuizResponse(s quizflow.State) quizResponse {
	resp := quizResponse{
		View:     s.View,
		Phase:    s.Phase,
		Feedback: s.Feedback,
		Notice:   s.Notice,
		Error:    s.Error,
	}
	if s.Question != nil {
		resp.Question = &questionView{
			ID:      s.Question.Question.Item.ID,
			Forms:   s.Question.Question.Item.Forms,
			Options: s.Question.Meanings(),
		}
	}
	return resp
}

// quizReady reports whether the quiz view is up and showing something other
// than a spinner. A controller that has not applied SignedIn or a pending
// ViewChanged yet is not ready.
func quizReady(s quizflow.State) bool {
	if s.View != quizflow.ViewQuiz {
		return false
	}
	switch s.Phase {
	case quizflow.PhaseAwaitingAnswer, quizflow.PhaseFeedback:
		return true
	}
	return s.Notice != "" || s.Error != ""
}

type answerRequest struct {
	Meaning string `json:"meaning"`
}

type viewRequest struct {
	View string `json:"view"`
}

// Current returns the quiz state, switching to the quiz view if needed and
// waiting briefly for the next question
func (h *QuizHandler) Current(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if c.State().View != quizflow.ViewQuiz {
		if err := c.Dispatch(quizflow.ViewChanged{View: quizflow.ViewQuiz}); err != nil {
			respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrInternalServerError, "Quiz controller closed", err)
			return
		}
	}
	h.respondSettled(w, r, c)
}

// Answer submits the selected meaning for the current question
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	s := c.State()
	if s.View != quizflow.ViewQuiz || s.Phase != quizflow.PhaseAwaitingAnswer || s.Question == nil {
		respondWithError(w, h.logger, http.StatusConflict, "No question is waiting for an answer", "", nil)
		return
	}
	if !s.Question.HasOption(req.Meaning) {
		respondWithError(w, h.logger, http.StatusBadRequest, "Unknown option", "", nil)
		return
	}

	gen := s.Generation
	if err := c.Dispatch(quizflow.AnswerSelected{Meaning: req.Meaning}); err != nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrInternalServerError, "Quiz controller closed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	s, err := c.Wait(ctx, func(s quizflow.State) bool {
		return s.Generation != gen || s.Phase == quizflow.PhaseFeedback
	})
	if err != nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrInternalServerError, "Timed out waiting for answer", err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizResponse(s))
}

// SetView switches between the quiz and progress views
func (h *QuizHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}
	view, ok := quizflow.ParseView(req.View)
	if !ok {
		respondWithError(w, h.logger, http.StatusBadRequest, "Unknown view", "", nil)
		return
	}

	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := c.Dispatch(quizflow.ViewChanged{View: view}); err != nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrInternalServerError, "Quiz controller closed", err)
		return
	}

	if view == quizflow.ViewQuiz {
		h.respondSettled(w, r, c)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	s, _ := c.Wait(ctx, func(s quizflow.State) bool { return s.View == view })
	writeJSON(w, http.StatusOK, newQuizResponse(s))
}

func (h *QuizHandler) controller(w http.ResponseWriter, r *http.Request) (*quizflow.Controller, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, h.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return nil, false
	}
	return h.registry.Acquire(r.Context(), *user), true
}

func (h *QuizHandler) respondSettled(w http.ResponseWriter, r *http.Request, c *quizflow.Controller) {
	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()

	s, err := c.Wait(ctx, quizReady)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrInternalServerError, "Quiz controller closed", err)
		return
	}

	status := http.StatusOK
	switch {
	case s.Notice != "":
		status = http.StatusConflict
	case s.Error != "":
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, newQuizResponse(s))
}
