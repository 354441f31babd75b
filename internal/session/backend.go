package session

import "context"

// Backend はセッションレコードの永続化インターフェース。
// テストではMemoryBackend、デプロイではPostgreSQL実装
// （repository.PostgresSessionBackend）を使用する。
//
// 正当性の前提: 同一セッションIDに対するアクセスはバックエンド側で
// 直列化されること（single-writer-per-session）。とくに
// 「ローテーション中にCSRFトークンが失われない」という保証は
// この直列化に依存している。直列化保証のないバックエンドに移植する
// 場合は、Store.Regenerateのread-modify-writeをセッション単位の
// ロックまたはcompare-and-swapで原子的にする必要がある。
type Backend interface {
	// Load は指定IDのレコードを取得する。
	// 存在しない場合はErrRecordNotFoundを返す。
	Load(ctx context.Context, id string) (*Record, error)

	// Save はレコードを保存する。既存レコードは上書きされる。
	Save(ctx context.Context, record *Record) error

	// Delete は指定IDのレコードを削除する。冪等であり、
	// 存在しないIDに対してもエラーを返さない。
	Delete(ctx context.Context, id string) error
}
