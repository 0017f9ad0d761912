package api

import (
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/service"
)

// TodoHandler serves the study planner.
type TodoHandler struct {
	todos  TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todos TodoService, logger *slog.Logger) *TodoHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TodoHandler")
	}
	return &TodoHandler{
		todos:  todos,
		logger: logger.With(slog.String("component", "todo_handler")),
	}
}

// List handles GET /api/todos.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	todos, err := h.todos.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(todos, 0, 0))
}

// Create handles POST /api/todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req TodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Date invalide", err)
		return
	}

	todo, err := h.todos.Create(r.Context(), userID, service.TodoInput{
		Title:   req.Title,
		Subject: req.Subject,
		DueDate: due,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, todo)
}

// Update handles PATCH /api/todos/{id}.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req TodoPatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	patch := service.TodoPatch{
		Title:        req.Title,
		Subject:      req.Subject,
		ClearDueDate: req.ClearDueDate,
		Done:         req.Done,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Date invalide", err)
			return
		}
		patch.DueDate = due
	}

	todo, err := h.todos.Update(r.Context(), userID, id, patch)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, todo)
}

// Delete handles DELETE /api/todos/{id}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.todos.Delete(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
