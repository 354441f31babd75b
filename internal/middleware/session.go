// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションStoreを格納するためのキー。
var sessionContextKey = contextKey("session")

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// NewSessionMiddleware はリクエストごとにセッションを復元するミドルウェアを返す。
//
// 処理の流れ:
//  1. Cookieからセッションを復元する（未知・不在のCookieは新規セッション）
//  2. アイデンティティペイロードをIdentityCacheで復元する
//  3. Monitorで無操作タイムアウトと識別子ローテーションを判定する
//  4. Storeをコンテキストにセットしてハンドラーへ渡す
//  5. ハンドラー完了後、変更があればバックエンドへ1回だけ書き込む
//
// バックエンド障害時は500を返し、新規セッションへのフォールバックは行わない。
// タイムアウトで破棄されたセッションは、同一リクエスト内で新しい
// 匿名セッションに差し替えられる。
func NewSessionMiddleware(
	backend session.Backend,
	cfg session.Config,
	monitor *session.Monitor,
	collector metrics.MetricsCollector,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			store := session.NewStore(backend, cfg, w, r, session.NewIdentityCache(nil))
			if err := store.Restore(ctx); err != nil {
				if errors.Is(err, session.ErrBackendUnavailable) {
					slog.Error("session backend unavailable",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				slog.Error("failed to restore session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if store.WasCreated() {
				collector.RecordSessionCreated()
			}

			result, err := monitor.Check(ctx, store)
			if err != nil {
				slog.Error("session monitor check failed",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if result.Expired {
				collector.RecordSessionDestroyed("timeout")
				// タイムアウト済みセッションの代わりに匿名セッションを開始する
				if err := store.Create(ctx); err != nil {
					slog.Error("failed to create replacement session",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				collector.RecordSessionCreated()
			}
			if result.Rotated {
				collector.RecordSessionRotated()
			}

			ctx = context.WithValue(ctx, sessionContextKey, store)
			next.ServeHTTP(w, r.WithContext(ctx))

			if err := store.Save(ctx); err != nil {
				slog.Error("failed to save session",
					slog.String("session_id", store.ID()),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションStoreを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*session.Store, error) {
	store, ok := ctx.Value(sessionContextKey).(*session.Store)
	if !ok || store == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return store, nil
}

// ContextWithSession はコンテキストにセッションStoreを注入する。
// テストでの使用を想定する。
func ContextWithSession(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, sessionContextKey, store)
}

// NewRequireAuthMiddleware は認証済みユーザーのみを通過させるミドルウェアを返す。
// セッションのアイデンティティからPrincipalを復元できない場合は
// 401 Unauthorizedを返す。通過時はユーザーIDをコンテキストに注入する。
func NewRequireAuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, err := SessionFromContext(r.Context())
			if err != nil {
				WriteInternalServerError(w)
				return
			}

			principal, ok := store.Identity().Principal()
			if !ok {
				WriteUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, principal.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
