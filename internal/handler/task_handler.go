package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, ownerID, projectID, title, description, status string, dueAt *time.Time) (*model.Task, error)
	ListByProject(ctx context.Context, ownerID, projectID string) ([]*model.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (*model.Task, error)
	Update(ctx context.Context, ownerID, taskID, title, description, status string, dueAt *time.Time) (*model.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
	Assign(ctx context.Context, ownerID, taskID, workerID string) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// assignRequest はタスク割り当てリクエストのボディ。
type assignRequest struct {
	WorkerID string `json:"worker_id"`
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		AssigneeID:  t.AssigneeID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueAt:       t.DueAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ListByProject はプロジェクト配下のタスク一覧を取得する。
// GET /api/projects/:id/tasks
func (h *TaskHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	tasks, err := h.service.ListByProject(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		res[i] = toTaskResponse(t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// Create はプロジェクト配下に新しいタスクを作成する。
// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	t, err := h.service.Create(r.Context(), userID, chi.URLParam(r, "id"), req.Title, req.Description, req.Status, req.DueAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// Get はタスクを取得する。
// GET /api/tasks/:id
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// Update はタスクを更新する。
// PUT /api/tasks/:id
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Title, req.Description, req.Status, req.DueAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// Delete はタスクを削除する。
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Assign はタスクを作業者に割り当てる。
// POST /api/tasks/:id/assign
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	t, err := h.service.Assign(r.Context(), userID, chi.URLParam(r, "id"), req.WorkerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(t))
}
