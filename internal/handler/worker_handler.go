package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/model"
)

// WorkerServiceInterface は作業者ハンドラーが必要とするサービスインターフェース。
type WorkerServiceInterface interface {
	Create(ctx context.Context, name, email, webhookURL string) (*model.Worker, error)
	List(ctx context.Context) ([]*model.Worker, error)
	Get(ctx context.Context, workerID string) (*model.Worker, error)
	Update(ctx context.Context, workerID, name, email, webhookURL string, active bool) (*model.Worker, error)
}

// WorkerHandler は作業者管理のHTTPハンドラー。
type WorkerHandler struct {
	service WorkerServiceInterface
}

// NewWorkerHandler はWorkerHandlerを生成する。
func NewWorkerHandler(service WorkerServiceInterface) *WorkerHandler {
	return &WorkerHandler{service: service}
}

// workerRequest は作業者登録・更新リクエストのボディ。
type workerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	WebhookURL string `json:"webhook_url"`
	Active     bool   `json:"active"`
}

// workerResponse は作業者のAPIレスポンス。
type workerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	WebhookURL string    `json:"webhook_url,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toWorkerResponse(w *model.Worker) workerResponse {
	return workerResponse{
		ID:         w.ID,
		Name:       w.Name,
		Email:      w.Email,
		WebhookURL: w.WebhookURL,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// List は全作業者の一覧を取得する。
// GET /api/workers
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res := make([]workerResponse, len(workers))
	for i, worker := range workers {
		res[i] = toWorkerResponse(worker)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// Create は新しい作業者を登録する。
// POST /api/workers
func (h *WorkerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	worker, err := h.service.Create(r.Context(), req.Name, req.Email, req.WebhookURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toWorkerResponse(worker))
}

// Get は作業者を取得する。
// GET /api/workers/:id
func (h *WorkerHandler) Get(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toWorkerResponse(worker))
}

// Update は作業者を更新する。有効・無効の切り替えもここで行う。
// PUT /api/workers/:id
func (h *WorkerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	worker, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email, req.WebhookURL, req.Active)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toWorkerResponse(worker))
}
