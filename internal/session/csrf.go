package session

import (
	"crypto/subtle"
	"net/http"
)

// HeaderName はCSRFトークンを運ぶリクエストヘッダー名。
// トークンがサーバーやプロキシのアクセスログ、キャッシュ済みURLに
// 残らないよう、ヘッダーのみで受け付ける（ボディやクエリ文字列は不可）。
const HeaderName = "X-CSRF-Token"

// CSRF はアクティブなセッションに紐づくアンチフォージェリトークンの
// 生成・取得・検証と、状態変更リクエストのゲートを担う。
type CSRF struct {
	store *Store
}

// NewCSRF はCSRFを生成する。
func NewCSRF(store *Store) *CSRF {
	return &CSRF{store: store}
}

// Generate は保存済みトークンを返し、存在しなければ新規生成して永続化する。
// 既存の有効なトークンを暗黙に置き換えることはない。置き換えると旧トークン
// を保持している開いているフォームやタブがすべて無効になるためである。
func (c *CSRF) Generate() (string, error) {
	if token, ok := c.store.Get(csrfTokenKey); ok {
		return token, nil
	}

	token, err := NewToken()
	if err != nil {
		return "", err
	}
	c.store.Set(csrfTokenKey, token)
	return token, nil
}

// Token は保存済みトークンを返す。副作用はない。
func (c *CSRF) Token() (string, bool) {
	if !c.store.IsActive() {
		return "", false
	}
	return c.store.Get(csrfTokenKey)
}

// SetToken はトークンを明示的に上書きする。署名付きCookieからの復元など、
// 帯域外でトークンを種付けするフロー専用であり、通常のリクエスト処理では
// 使用しない。
func (c *CSRF) SetToken(token string) {
	c.store.Set(csrfTokenKey, token)
}

// Validate は保存済みトークンと候補を比較する。
// トークンが保存されていない場合、候補が空文字列の場合はfalseを返す。
// 比較はcrypto/subtleの定数時間比較で行い、実行時間が最初の不一致
// バイトの位置に依存しないことを保証する（タイミングサイドチャネル対策）。
func (c *CSRF) Validate(candidate string) bool {
	if candidate == "" || !c.store.IsActive() {
		return false
	}
	stored, ok := c.store.Get(csrfTokenKey)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// Protect は状態変更メソッド（POST/PUT/PATCH/DELETE）のリクエストを
// トークン検証で保護する。GET/HEAD/OPTIONSは検証対象外。
// 候補トークンはHeaderNameヘッダーから取得し、ヘッダー不在は空文字列
// として扱う。検証失敗時はErrCSRFRejectedを返す。
func (c *CSRF) Protect(r *http.Request) error {
	if !isMutatingMethod(r.Method) {
		return nil
	}
	if !c.Validate(r.Header.Get(HeaderName)) {
		return ErrCSRFRejected
	}
	return nil
}

// isMutatingMethod はHTTPメソッドが状態変更を伴うかどうかを判定する。
func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
