package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, email, name, password string) (*model.User, error)
	// Login は認証情報を検証し、セッションへログイン状態を書き込む。
	Login(ctx context.Context, store *session.Store, email, password string) (*model.Principal, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, store *session.Store) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// principalResponse は認証済みユーザーのAPIレスポンス。
type principalResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(principalResponse{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
}

// Login は認証情報を検証しログインセッションを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	principal, err := h.service.Login(r.Context(), store, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(principalResponse{
		UserID: principal.UserID,
		Email:  principal.Email,
		Name:   principal.Name,
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.service.Logout(r.Context(), store); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザーを返す。未ログインの場合は401を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	principal, ok := store.Identity().Principal()
	if !ok {
		middleware.WriteUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(principalResponse{
		UserID: principal.UserID,
		Email:  principal.Email,
		Name:   principal.Name,
	})
}

// CSRFToken は現在のセッションに紐づくCSRFトークンを返す。
// トークンが未発行の場合は新規生成して永続化する。
// GET /api/csrf-token
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	store, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	token, err := session.NewCSRF(store).Generate()
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": token,
	})
}
