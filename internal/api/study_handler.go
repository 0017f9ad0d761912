package api

import (
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/service"
)

// StudyHandler serves summaries, flashcard decks and QCM.
type StudyHandler struct {
	study  StudyService
	logger *slog.Logger
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(study StudyService, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StudyHandler")
	}
	return &StudyHandler{
		study:  study,
		logger: logger.With(slog.String("component", "study_handler")),
	}
}

// CreateSummary handles POST /api/summaries.
func (h *StudyHandler) CreateSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req StudySourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sum, err := h.study.CreateSummary(r.Context(), userID, req.toSource())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sum)
}

// ListSummaries handles GET /api/summaries.
func (h *StudyHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	items, err := h.study.ListSummaries(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(items, limit, offset))
}

// GetSummary handles GET /api/summaries/{id}.
func (h *StudyHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	sum, err := h.study.GetSummary(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sum)
}

// DeleteSummary handles DELETE /api/summaries/{id}.
func (h *StudyHandler) DeleteSummary(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.study.DeleteSummary(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateFlashcards handles POST /api/flashcards.
func (h *StudyHandler) CreateFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req FlashcardsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = defaultFlashcardCount
	}

	set, err := h.study.CreateFlashcards(r.Context(), userID, service.FlashcardsInput{
		StudySource: req.toSource(),
		Count:       req.Count,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, set)
}

// ListFlashcards handles GET /api/flashcards.
func (h *StudyHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	items, err := h.study.ListFlashcards(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(items, limit, offset))
}

// GetFlashcards handles GET /api/flashcards/{id}.
func (h *StudyHandler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	set, err := h.study.GetFlashcards(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, set)
}

// DeleteFlashcards handles DELETE /api/flashcards/{id}.
func (h *StudyHandler) DeleteFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.study.DeleteFlashcards(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateQuiz handles POST /api/qcm.
func (h *StudyHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req QuizRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = defaultQuestionCount
	}

	quiz, err := h.study.CreateQuiz(r.Context(), userID, service.QuizInput{
		StudySource: req.toSource(),
		Count:       req.Count,
		Difficulty:  domain.QuizDifficulty(req.Difficulty),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, quiz)
}

// ListQuizzes handles GET /api/qcm.
func (h *StudyHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	items, err := h.study.ListQuizzes(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(items, limit, offset))
}

// GetQuiz handles GET /api/qcm/{id}.
func (h *StudyHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	quiz, err := h.study.GetQuiz(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, quiz)
}

// DeleteQuiz handles DELETE /api/qcm/{id}.
func (h *StudyHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.study.DeleteQuiz(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
