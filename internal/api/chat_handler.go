package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/service"
)

// ChatHandler starts tutoring generations and serves their progress.
type ChatHandler struct {
	chat          ChatService
	conversations ConversationService
	logger        *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat ChatService, conversations ConversationService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ChatHandler")
	}
	return &ChatHandler{
		chat:          chat,
		conversations: conversations,
		logger:        logger.With(slog.String("component", "chat_handler")),
	}
}

// StartGeneration handles POST /api/chat. It answers 202 once the task is
// queued, or 200 with the existing task when the message id was already seen.
func (h *ChatHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, created, err := h.chat.StartGeneration(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("generation task started",
		slog.String("task_id", t.ID.String()),
		slog.Bool("created", created))
	shared.RespondWithJSON(w, r, status, taskToResponse(t))
}

// GetTask handles GET /api/generation-tasks/{messageID}.
func (h *ChatHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	messageID := strings.TrimSpace(chi.URLParam(r, "messageID"))
	if messageID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Identifiant de message manquant")
		return
	}

	t, err := h.chat.GetTask(r.Context(), userID, messageID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// ListConversations handles GET /api/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	convs, err := h.conversations.List(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(convs, limit, offset))
}

// CreateConversation handles POST /api/conversations.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req ConversationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.conversations.Create(r.Context(), userID, service.ConversationInput{
		Title:   req.Title,
		Subject: req.Subject,
		Grade:   req.Grade,
		Format:  domain.ChatFormat(req.Format),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, conv)
}

// GetConversation handles GET /api/conversations/{id}.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.conversations.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// RenameConversation handles PATCH /api/conversations/{id}.
func (h *ChatHandler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RenameConversationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	conv, err := h.conversations.Rename(r.Context(), userID, id, req.Title)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /api/conversations/{id}.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.conversations.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
