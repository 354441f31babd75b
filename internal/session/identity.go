package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskdeck/internal/model"
)

// DecodeFunc はアイデンティティペイロードをPrincipalへ復元する関数。
type DecodeFunc func(payload []byte) (*model.Principal, error)

// IdentityCache はリクエストスコープの「現在の認証済みアイデンティティ」
// キャッシュ。セッションペイロードのデシリアライズをリクエストあたり
// 最大1回に抑える。ライフタイムはリクエストコンテキストに紐づき、
// プロセス全体で共有される静的状態は持たない。
type IdentityCache struct {
	decode    DecodeFunc
	principal *model.Principal
	attempted bool
}

// NewIdentityCache はIdentityCacheを生成する。
// decodeがnilの場合はJSONデコードを使用する。
func NewIdentityCache(decode DecodeFunc) *IdentityCache {
	if decode == nil {
		decode = decodeJSONPrincipal
	}
	return &IdentityCache{decode: decode}
}

// decodeJSONPrincipal はJSONペイロードをPrincipalへ復元する。
func decodeJSONPrincipal(payload []byte) (*model.Principal, error) {
	var p model.Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode identity payload: %w", err)
	}
	if p.UserID == "" {
		return nil, fmt.Errorf("identity payload missing user_id")
	}
	return &p, nil
}

// Restore はペイロードからアイデンティティを復元してキャッシュする。
// 既に復元済み、または復元を試行済みの場合は何もしない
// （デコーダの呼び出しはリクエストあたり最大1回）。
//
// デコードに失敗したペイロード（破損またはスキーマ不一致）は匿名として
// 扱い、警告ログのみ記録してリクエスト自体は継続させる。
// 匿名アクセスを許可するかどうかは下流の認可ロジックが判断する。
func (c *IdentityCache) Restore(payload string) {
	if c.attempted || c.principal != nil {
		return
	}
	c.attempted = true

	if payload == "" {
		return
	}

	p, err := c.decode([]byte(payload))
	if err != nil {
		slog.Warn("failed to restore identity from session, degrading to anonymous",
			slog.String("error", err.Error()),
		)
		return
	}
	c.principal = p
}

// Principal はキャッシュ済みアイデンティティを返す。
// falseは認証済みプリンシパル不在（匿名）を意味する。
func (c *IdentityCache) Principal() (*model.Principal, bool) {
	if c.principal == nil {
		return nil, false
	}
	return c.principal, true
}

// Destroy はキャッシュ済みアイデンティティを破棄する。
// Store.DestroyおよびStore.Clear、明示的なログアウトから呼び出される。
func (c *IdentityCache) Destroy() {
	c.principal = nil
	c.attempted = false
}
