package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// セッションミドルウェア依存
	SessionBackend session.Backend
	SessionConfig  session.Config
	SessionMonitor *session.Monitor

	// 可観測性
	Logger    *slog.Logger
	Collector metrics.MetricsCollector

	// CORS
	CORSAllowedOrigin string

	// サービス
	AuthService    AuthServiceInterface
	ProjectService ProjectServiceInterface
	TaskService    TaskServiceInterface
	WorkerService  WorkerServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → CSRF
//
// セッションミドルウェアは全ルートに適用され、未知のCookieでも匿名
// セッションが確立される。CSRF検証は状態変更メソッドのみに働くため、
// ログイン前のGETリクエストを妨げない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewSessionMiddleware(deps.SessionBackend, deps.SessionConfig, deps.SessionMonitor, deps.Collector))
	r.Use(middleware.NewCSRFMiddleware(deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	taskHandler := NewTaskHandler(deps.TaskService)
	workerHandler := NewWorkerHandler(deps.WorkerService)

	requireAuth := middleware.NewRequireAuthMiddleware()

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	r.Get("/api/csrf-token", authHandler.CSRFToken)

	// --- 認証必須のルート ---

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)

				r.Get("/tasks", taskHandler.ListByProject)
				r.Post("/tasks", taskHandler.Create)
			})
		})

		r.Route("/api/tasks", func(r chi.Router) {
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Post("/assign", taskHandler.Assign)
			})
		})

		r.Route("/api/workers", func(r chi.Router) {
			r.Get("/", workerHandler.List)
			r.Post("/", workerHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", workerHandler.Get)
				r.Put("/", workerHandler.Update)
			})
		})
	})

	return r
}

// healthHandler はヘルスチェックエンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
