package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkolesov/todovault/internal/domain"
	"github.com/dkolesov/todovault/internal/logging"
	"github.com/dkolesov/todovault/internal/server/models"
)

// TodoProvider is the slice of the todo service the handlers need.
type TodoProvider interface {
	Create(ctx context.Context, ownerID, title, description string, completed bool) (*models.Todo, error)
	List(ctx context.Context, ownerID string) ([]*models.Todo, error)
	Get(ctx context.Context, userID, todoID string) (*models.Todo, error)
	Update(ctx context.Context, userID, todoID, title, description string, completed bool) (*models.Todo, error)
	Delete(ctx context.Context, userID, todoID string) error
}

// TodoHandler serves the ownership-scoped todo CRUD endpoints. All of them
// sit behind the auth gate, so an identity is always present in the context.
type TodoHandler struct {
	todos  TodoProvider
	logger logging.Logger
}

func NewTodoHandler(todos TodoProvider, logger logging.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: logger}
}

type todoResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func todoPayload(t *models.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type todoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Pointer so a missing flag is distinguishable from false.
	IsCompleted *bool `json:"isCompleted"`
}

func (req *todoRequest) validate() error {
	var missing []string
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return domain.Validation("all fields are required", missing...)
	}
	if req.IsCompleted == nil {
		return domain.Validation("isCompleted must be a boolean")
	}
	return nil
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, h.logger, domain.Validation("invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	todo, err := h.todos.Create(ctx, user.ID, req.Title, req.Description, *req.IsCompleted)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, todoPayload(todo), "todo created")
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}

	todos, err := h.todos.List(ctx, user.ID)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	payload := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		payload = append(payload, todoPayload(t))
	}
	respond(w, http.StatusOK, payload, "ok")
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}

	todo, err := h.todos.Get(ctx, user.ID, chi.URLParam(r, "todoID"))
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, todoPayload(todo), "ok")
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}

	var req todoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, h.logger, domain.Validation("invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}

	todo, err := h.todos.Update(ctx, user.ID, chi.URLParam(r, "todoID"), req.Title, req.Description, *req.IsCompleted)
	if err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, todoPayload(todo), "todo updated")
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := IdentityFromContext(ctx)
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.todos.Delete(ctx, user.ID, chi.URLParam(r, "todoID")); err != nil {
		writeError(ctx, w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, nil, "todo deleted")
}
