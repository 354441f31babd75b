package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/session"
)

// NewCSRFMiddleware はCSRFトークンの検証ミドルウェアを返す。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）のリクエストについて、
// X-CSRF-Tokenヘッダーの値をセッションに保存されたトークンと
// 定数時間比較で照合する。安全なメソッドは検証をスキップする。
//
// 検証失敗時は403を返す。レスポンスからはトークン不在と不一致を
// 区別できない。
func NewCSRFMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, err := SessionFromContext(r.Context())
			if err != nil {
				WriteInternalServerError(w)
				return
			}

			csrf := session.NewCSRF(store)
			if err := csrf.Protect(r); err != nil {
				if errors.Is(err, session.ErrCSRFRejected) {
					collector.RecordCSRFRejected()
					slog.Warn("CSRF validation failed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("session_id", store.ID()),
					)
					WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFRejectedError())
					return
				}
				slog.Error("CSRF protection error",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
