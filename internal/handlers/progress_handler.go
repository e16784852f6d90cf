package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"vocabquiz/internal/quiz"
	"vocabquiz/internal/service"
)

// ProgressHandler serves the per-user strength report
type ProgressHandler struct {
	progressService *service.ProgressService
	logger          *logrus.Entry
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		logger:          logger.WithField("handler", "progress"),
	}
}

type progressResponse struct {
	Filter  quiz.Filter  `json:"filter"`
	Strong  int          `json:"strong"`
	Medium  int          `json:"medium"`
	Weak    int          `json:"weak"`
	Entries []quiz.Entry `json:"entries"`
	Message string       `json:"message,omitempty"`
}

// Show handles GET /progress?filter=all|weak
func (h *ProgressHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, h.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	filter, err := quiz.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	report, err := h.progressService.Report(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, h.logger, http.StatusServiceUnavailable, ErrBackendUnavailable, "Failed to load progress", err)
		return
	}

	resp := progressResponse{
		Filter:  filter,
		Strong:  report.Strong,
		Medium:  report.Medium,
		Weak:    report.Weak,
		Entries: report.Visible(filter),
	}
	if len(resp.Entries) == 0 {
		resp.Entries = []quiz.Entry{}
		resp.Message = MsgNoMatchingWords
	}
	writeJSON(w, http.StatusOK, resp)
}
